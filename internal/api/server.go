package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enricher/internal/api/handlers"
	"enricher/internal/api/middleware"
	"enricher/internal/config"
	"enricher/internal/logger"
	"enricher/internal/metrics"
)

// Dependencies are the services the HTTP surface exposes.
type Dependencies struct {
	Sync     handlers.SyncService
	Products handlers.ProductStore
	Checks   map[string]handlers.Check
}

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, deps Dependencies) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(deps.Sync, logger)
	productHandler := handlers.NewProductHandler(deps.Products, logger)
	healthHandler := handlers.NewHealthHandler(deps.Checks)

	router.GET("/healthz", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Sync jobs
		sync := v1.Group("/sync")
		{
			sync.POST("", syncHandler.Start)
			sync.GET("/:namespace", syncHandler.Status)
		}

		// Enriched catalog
		products := v1.Group("/namespaces/:namespace/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
