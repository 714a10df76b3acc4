package export

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"enricher/internal/logger"
	"enricher/internal/models"
)

const (
	EventSyncStarted     = "sync.started"
	EventSyncCompleted   = "sync.completed"
	EventSyncFailed      = "sync.failed"
	EventProductEnriched = "product.enriched"
)

// MessageWriter is the part of kafka.Writer the exporter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CatalogEvent is published for the search indexer and the onboarding UI.
type CatalogEvent struct {
	Type      string          `json:"type"`
	Namespace string          `json:"namespace"`
	RunID     string          `json:"run_id,omitempty"`
	Job       *JobPayload     `json:"job,omitempty"`
	Product   *ProductPayload `json:"product,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type JobPayload struct {
	State          models.JobState `json:"state"`
	Platform       models.Platform `json:"platform"`
	Mode           models.SyncMode `json:"mode"`
	TotalProducts  int             `json:"total_products"`
	ProcessedCount int             `json:"processed_count"`
	EnrichedCount  int             `json:"enriched_count"`
	FailedCount    int             `json:"failed_count"`
	Error          *string         `json:"error,omitempty"`
}

type ProductPayload struct {
	PlatformProductID string             `json:"platform_product_id"`
	Name              string             `json:"name"`
	Category          *string            `json:"category"`
	Types             []string           `json:"types"`
	Price             float64            `json:"price"`
	URL               string             `json:"url"`
	Image             *string            `json:"image"`
	StockStatus       models.StockStatus `json:"stock_status"`
}

// Exporter publishes catalog lifecycle events to Kafka. Publishing is best
// effort: failures are logged and never reach the sync job.
type Exporter struct {
	writer MessageWriter
	logger *logger.Logger
}

func New(writer MessageWriter, logger *logger.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		logger: logger,
	}
}

// NewKafkaWriter builds the events topic writer.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           20 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (e *Exporter) SyncStarted(ctx context.Context, job *models.SyncJob) {
	e.publish(ctx, jobEvent(EventSyncStarted, job))
}

func (e *Exporter) SyncFinished(ctx context.Context, job *models.SyncJob) {
	eventType := EventSyncCompleted
	if job.State == models.JobError {
		eventType = EventSyncFailed
	}
	e.publish(ctx, jobEvent(eventType, job))
}

func (e *Exporter) ProductEnriched(ctx context.Context, runID string, p *models.Product) {
	e.publish(ctx, CatalogEvent{
		Type:      EventProductEnriched,
		Namespace: p.Namespace,
		RunID:     runID,
		Product: &ProductPayload{
			PlatformProductID: p.PlatformProductID,
			Name:              p.Name,
			Category:          p.Category,
			Types:             p.Types,
			Price:             p.Price,
			URL:               p.URL,
			Image:             p.Image,
			StockStatus:       p.StockStatus,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (e *Exporter) Close() error {
	return e.writer.Close()
}

func jobEvent(eventType string, job *models.SyncJob) CatalogEvent {
	return CatalogEvent{
		Type:      eventType,
		Namespace: job.Namespace,
		RunID:     job.RunID,
		Job: &JobPayload{
			State:          job.State,
			Platform:       job.Platform,
			Mode:           job.Mode,
			TotalProducts:  job.TotalProducts,
			ProcessedCount: job.ProcessedCount,
			EnrichedCount:  job.EnrichedCount,
			FailedCount:    job.FailedCount,
			Error:          job.Error,
		},
		Timestamp: time.Now().UTC(),
	}
}

func (e *Exporter) publish(ctx context.Context, event CatalogEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to marshal %s event: %v", event.Type, err)
		return
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Namespace),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		e.logger.Warn("Failed to publish %s event for %s: %v", event.Type, event.Namespace, err)
		return
	}
	e.logger.Debug("Published %s event for %s", event.Type, event.Namespace)
}
