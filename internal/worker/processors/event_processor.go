package processors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enricher/internal/logger"
	"enricher/internal/models"
	"enricher/internal/orchestrator"
	"enricher/internal/store"
)

const (
	EventSyncRequested   = "sync.requested"
	EventEnrichRequested = "enrich.requested"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is a message of the sync requests topic.
type Event struct {
	Type      string               `json:"type"`
	Namespace string               `json:"namespace"`
	Request   orchestrator.Request `json:"request"`
	Timestamp time.Time            `json:"timestamp"`
}

type SyncStarter interface {
	StartSync(ctx context.Context, req orchestrator.Request) (*models.SyncJob, error)
}

type EventProcessor struct {
	starter SyncStarter
	logger  *logger.Logger
}

func NewEventProcessor(starter SyncStarter, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		starter: starter,
		logger:  logger,
	}
}

// Process starts the job an event asks for. A namespace that is already
// syncing is not an error: the running job covers the request.
func (ep *EventProcessor) Process(ctx context.Context, event Event) error {
	req := event.Request
	if req.Namespace == "" {
		req.Namespace = event.Namespace
	}

	switch event.Type {
	case EventSyncRequested:
		if req.Mode == "" {
			req.Mode = models.ModeFull
		}
	case EventEnrichRequested:
		req.Mode = models.ModeResume
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}

	job, err := ep.starter.StartSync(ctx, req)
	if errors.Is(err, store.ErrJobRunning) {
		ep.logger.Info("Sync for %s already running, skipping %s", req.Namespace, event.Type)
		return nil
	}
	if err != nil {
		return fmt.Errorf("start %s for %s: %w", req.Mode, req.Namespace, err)
	}

	ep.logger.Info("Started %s run %s for %s", job.Mode, job.RunID, job.Namespace)
	return nil
}
