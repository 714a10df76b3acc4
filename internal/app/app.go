package app

import (
	"context"
	"errors"
	"fmt"

	"enricher/internal/api/handlers"
	"enricher/internal/cache"
	"enricher/internal/config"
	"enricher/internal/connectors"
	"enricher/internal/database"
	"enricher/internal/logger"
	"enricher/internal/orchestrator"
	"enricher/internal/services/vision"
	"enricher/internal/store"
	"enricher/internal/worker/processors/ai"
	"enricher/internal/worker/processors/enrichment"
	"enricher/internal/worker/processors/export"
	"enricher/internal/worker/processors/text"
)

// App holds the services shared by the API and worker binaries.
type App struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.Database
	Catalog      *store.CatalogStore
	Jobs         *store.JobStore
	Orchestrator *orchestrator.Orchestrator

	redis    *cache.RedisClient
	exporter *export.Exporter
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Catalog: store.NewCatalogStore(db.DB, log),
		Jobs:    store.NewJobStore(db.DB, log, cfg.Sync.StaleJobAfter),
	}

	pipeline := a.buildPipeline(a.textCache())

	var notifier orchestrator.Notifier = orchestrator.NopNotifier()
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.EventsTopic != "" {
		a.exporter = export.New(export.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic), log)
		notifier = a.exporter
	}

	a.Orchestrator = orchestrator.New(a.Catalog, a.Jobs, NewConnectorFactory(cfg.Sync, log), pipeline, notifier,
		orchestrator.Options{
			Concurrency: cfg.Sync.Concurrency,
			Retry: connectors.RetryPolicy{
				Attempts: cfg.Sync.FetchRetries,
				Backoff:  cfg.Sync.RetryBackoff,
			},
		}, log)

	if cfg.AWS.Region != "" {
		client, err := vision.NewRekognitionClient(ctx, cfg.AWS.Region)
		if err != nil {
			log.Warn("Image descriptions disabled: %v", err)
		} else {
			a.Orchestrator.RegisterSource(enrichment.NewImageLabelSource(vision.NewLabelDetector(client, log)))
		}
	}

	a.reportInterrupted(ctx)
	return a, nil
}

// textCache prefers Redis so translations survive restarts and are shared
// between replicas.
func (a *App) textCache() cache.TextCache {
	if a.Config.Redis.URL == "" {
		return cache.NewMemoryTextCacheWithLimit(a.Config.Redis.MemoryEntries)
	}
	client, err := cache.NewRedisClient(a.Config.Redis.URL)
	if err != nil {
		a.Logger.Warn("Redis unavailable, using in-process cache: %v", err)
		return cache.NewMemoryTextCacheWithLimit(a.Config.Redis.MemoryEntries)
	}
	a.redis = client
	return cache.NewRedisTextCache(client, a.Config.Redis.CacheTTL, a.Logger)
}

func (a *App) buildPipeline(textCache cache.TextCache) *enrichment.Pipeline {
	cfg := a.Config.AI
	log := a.Logger

	openai := ai.NewClient(ai.ClientConfig{
		Name:              "openai",
		BaseURL:           cfg.OpenAIBaseURL,
		APIKey:            cfg.OpenAIAPIKey,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           cfg.Timeout,
	}, log)
	if !openai.Configured() {
		log.Warn("OPENAI_API_KEY not set, enrichment stages will fail and products stay pending")
	}

	return enrichment.NewPipeline(
		enrichment.NewHTMLSource(text.NewNormalizer()),
		enrichment.NewCachedTranslator(ai.NewTranslator(openai, cfg.ChatModel, cfg.TargetLanguage, log), textCache, cfg.TargetLanguage),
		enrichment.NewCachedSummarizer(ai.NewSummarizer(openai, cfg.ChatModel, log), textCache),
		enrichment.NewClassifierChain(log, buildClassifiers(cfg, openai, log)...),
		ai.NewEmbedder(openai, cfg.EmbeddingModel, cfg.EmbeddingDims),
		log,
	)
}

// buildClassifiers orders the classifier chain: primary model, optional
// OpenRouter fallback, then keyword rules.
func buildClassifiers(cfg config.AIConfig, openai *ai.Client, log *logger.Logger) []enrichment.Classifier {
	classifiers := []enrichment.Classifier{ai.NewChatClassifier("openai", openai, cfg.ClassifierModel, log)}
	openrouter := ai.NewClient(ai.ClientConfig{
		Name:              "openrouter",
		BaseURL:           cfg.OpenRouterBaseURL,
		APIKey:            cfg.OpenRouterAPIKey,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           cfg.Timeout,
	}, log)
	if openrouter.Configured() {
		classifiers = append(classifiers, ai.NewChatClassifier("openrouter", openrouter, cfg.FallbackModel, log))
	}
	return append(classifiers, enrichment.NewKeywordClassifier())
}

// reportInterrupted logs jobs left running by a previous process. They are
// taken over by the next request once stale.
func (a *App) reportInterrupted(ctx context.Context) {
	jobs, err := a.Jobs.ListRunning(ctx)
	if err != nil {
		a.Logger.Warn("Failed to list running jobs: %v", err)
		return
	}
	for _, job := range jobs {
		a.Logger.Warn("Job %s of %s was running at startup (%d/%d processed)", job.RunID, job.Namespace, job.ProcessedCount, job.TotalProducts)
	}
}

// Checks are the dependencies reported by /healthz.
func (a *App) Checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": a.DB.Ping,
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// Close waits for running jobs, then releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Orchestrator.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown: %w", err))
	}
	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
