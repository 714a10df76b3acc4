package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"enricher/internal/logger"
	"enricher/internal/models"
	"enricher/internal/store"
)

type ProductStore interface {
	List(ctx context.Context, namespace string, f store.ListFilter) ([]models.Product, int64, error)
	Get(ctx context.Context, namespace, platformProductID string) (*models.Product, error)
}

type ProductHandler struct {
	store  ProductStore
	logger *logger.Logger
}

func NewProductHandler(store ProductStore, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		store:  store,
		logger: logger,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	namespace := c.Param("namespace")

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := store.ListFilter{
		Status: models.EnrichmentStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}
	products, total, err := h.store.List(c.Request.Context(), namespace, filter)
	if err != nil {
		h.logger.Error("Failed to list products of %s: %v", namespace, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.store.Get(c.Request.Context(), c.Param("namespace"), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}
