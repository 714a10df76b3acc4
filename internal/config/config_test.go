package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Sync.Concurrency)
	assert.Equal(t, 100, cfg.Sync.PageSize)
	assert.Equal(t, 3072, cfg.AI.EmbeddingDims)
	assert.Equal(t, "sync-requests", cfg.Kafka.RequestsTopic)
	assert.Equal(t, 10000, cfg.Redis.MemoryEntries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SYNC_CONCURRENCY", "8")
	t.Setenv("SYNC_RETRY_BACKOFF", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("AI_EMBEDDING_DIMENSIONS", "not-a-number")
	t.Setenv("MEMORY_CACHE_ENTRIES", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.RetryBackoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3072, cfg.AI.EmbeddingDims)
	assert.Equal(t, 500, cfg.Redis.MemoryEntries)
}
