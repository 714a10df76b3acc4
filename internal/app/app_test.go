package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enricher/internal/config"
	"enricher/internal/connectors"
	"enricher/internal/logger"
	"enricher/internal/models"
	"enricher/internal/orchestrator"
	"enricher/internal/worker/processors/ai"
	"enricher/internal/worker/processors/enrichment"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL: "sqlite://:memory:",
		AI: config.AIConfig{
			OpenAIBaseURL:  "http://127.0.0.1:1",
			EmbeddingDims:  8,
			TargetLanguage: "en",
		},
		Sync: config.SyncConfig{Concurrency: 2, PageSize: 50, ShopifyFirst: 100, FetchRetries: 1},
	}
}

func TestNew_WiresWithoutOptionalServices(t *testing.T) {
	a, err := New(context.Background(), testConfig(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	require.NotNil(t, a.Orchestrator)
	checks := a.Checks()
	assert.Contains(t, checks, "database")
	assert.NotContains(t, checks, "redis")
	assert.NoError(t, checks["database"](context.Background()))

	job, err := a.Orchestrator.StartSync(context.Background(), orchestratorResume("shop-a"))
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, job.State)
	a.Orchestrator.Wait()

	final, err := a.Jobs.Get(context.Background(), "shop-a")
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, final.State)
}

func TestConnectorFactory(t *testing.T) {
	factory := NewConnectorFactory(testConfig().Sync, logger.Nop())

	src, err := factory(models.PlatformShopify, models.Credentials{ShopDomain: "a.myshopify.com", AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformShopify, src.Platform())

	src, err = factory(models.PlatformWooCommerce, models.Credentials{StoreURL: "https://shop.example", ConsumerKey: "k", ConsumerSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformWooCommerce, src.Platform())

	_, err = factory(models.Platform("magento"), models.Credentials{})
	assert.Error(t, err)

	var _ connectors.Factory = factory
}

func orchestratorResume(namespace string) orchestrator.Request {
	return orchestrator.Request{Namespace: namespace, Mode: models.ModeResume}
}

func TestBuildClassifiers_KeywordRulesAlwaysLast(t *testing.T) {
	cfg := testConfig().AI
	openai := ai.NewClient(ai.ClientConfig{Name: "openai", BaseURL: cfg.OpenAIBaseURL}, logger.Nop())

	names := func(cs []enrichment.Classifier) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Name())
		}
		return out
	}

	assert.Equal(t, []string{"openai", "keywords"}, names(buildClassifiers(cfg, openai, logger.Nop())))

	cfg.OpenRouterAPIKey = "or-key"
	assert.Equal(t, []string{"openai", "openrouter", "keywords"}, names(buildClassifiers(cfg, openai, logger.Nop())))
}
