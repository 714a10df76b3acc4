package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"enricher/internal/logger"
	"enricher/internal/models"
	"enricher/internal/orchestrator"
	"enricher/internal/store"
)

type SyncService interface {
	StartSync(ctx context.Context, req orchestrator.Request) (*models.SyncJob, error)
	Status(ctx context.Context, namespace string) (*models.SyncJob, error)
}

type SyncHandler struct {
	service SyncService
	logger  *logger.Logger
}

func NewSyncHandler(service SyncService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger,
	}
}

// Start triggers a sync and answers before any product is processed.
func (h *SyncHandler) Start(c *gin.Context) {
	var req orchestrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.service.StartSync(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"data": job})
	case errors.Is(err, store.ErrJobRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrUnsupportedSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to start sync for %s: %v", req.Namespace, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sync"})
	}
}

// Status is polled by the onboarding UI. A namespace that never synced
// reports idle.
func (h *SyncHandler) Status(c *gin.Context) {
	namespace := c.Param("namespace")

	job, err := h.service.Status(c.Request.Context(), namespace)
	if errors.Is(err, store.ErrJobNotFound) {
		c.JSON(http.StatusOK, gin.H{"data": &models.SyncJob{Namespace: namespace, State: models.JobIdle}})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load job %s: %v", namespace, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job})
}
