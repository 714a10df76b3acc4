package export

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"enricher/internal/logger"
	"enricher/internal/models"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func decode(t *testing.T, msg kafka.Message) CatalogEvent {
	t.Helper()
	var ev CatalogEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	return ev
}

func TestExporter_JobEvents(t *testing.T) {
	w := &recordingWriter{}
	e := New(w, logger.Nop())
	ctx := context.Background()

	job := &models.SyncJob{Namespace: "shop-a", RunID: "run-1", State: models.JobRunning, Platform: models.PlatformShopify}
	e.SyncStarted(ctx, job)

	job.State = models.JobDone
	job.TotalProducts, job.ProcessedCount = 10, 10
	e.SyncFinished(ctx, job)

	msg := "unauthorized"
	e.SyncFinished(ctx, &models.SyncJob{Namespace: "shop-b", State: models.JobError, Error: &msg})

	require.Len(t, w.messages, 3)
	assert.Equal(t, "shop-a", string(w.messages[0].Key))
	assert.Equal(t, EventSyncStarted, decode(t, w.messages[0]).Type)

	done := decode(t, w.messages[1])
	assert.Equal(t, EventSyncCompleted, done.Type)
	assert.Equal(t, 10, done.Job.ProcessedCount)
	assert.Equal(t, "run-1", done.RunID)

	failed := decode(t, w.messages[2])
	assert.Equal(t, EventSyncFailed, failed.Type)
	require.NotNil(t, failed.Job.Error)
	assert.Equal(t, "unauthorized", *failed.Job.Error)
	assert.Equal(t, []byte(EventSyncFailed), w.messages[2].Headers[0].Value)
}

func TestExporter_ProductEnriched(t *testing.T) {
	w := &recordingWriter{}
	category := "Oils"
	New(w, logger.Nop()).ProductEnriched(context.Background(), "run-1", &models.Product{
		Namespace:         "shop-a",
		PlatformProductID: "42",
		Name:              "Olive oil",
		Category:          &category,
		Types:             datatypes.JSONSlice[string]{"kosher"},
		Embedding:         models.Vector{0.1},
	})

	require.Len(t, w.messages, 1)
	ev := decode(t, w.messages[0])
	assert.Equal(t, EventProductEnriched, ev.Type)
	require.NotNil(t, ev.Product)
	assert.Equal(t, "42", ev.Product.PlatformProductID)
	assert.Equal(t, []string{"kosher"}, ev.Product.Types)
	assert.NotContains(t, string(w.messages[0].Value), "embedding")
}

func TestExporter_WriteFailureIsSwallowed(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	e := New(w, logger.Nop())
	assert.NotPanics(t, func() {
		e.SyncStarted(context.Background(), &models.SyncJob{Namespace: "shop-a"})
	})
	assert.Empty(t, w.messages)
}
