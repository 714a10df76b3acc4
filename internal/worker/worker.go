package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"enricher/internal/config"
	"enricher/internal/logger"
	"enricher/internal/worker/processors"
)

// MessageReader is the part of kafka.Reader the worker consumes.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Processor interface {
	Process(ctx context.Context, event processors.Event) error
}

type Worker struct {
	logger    *logger.Logger
	reader    MessageReader
	processor Processor
}

// NewReader builds the consumer of the sync requests topic.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.RequestsTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: 0,
	})
}

func New(reader MessageReader, processor Processor, logger *logger.Logger) *Worker {
	return &Worker{
		logger:    logger,
		reader:    reader,
		processor: processor,
	}
}

// Start consumes until ctx is cancelled. Every message is committed once
// handled, including the ones that failed to parse or process: jobs are
// restartable, so a bad request is logged rather than redelivered forever.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started, listening for sync requests...")

	for {
		message, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("Failed to read message: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		w.handle(ctx, message)

		if err := w.reader.CommitMessages(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("Failed to commit offset %d: %v", message.Offset, err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, message kafka.Message) {
	var event processors.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		w.logger.Error("Failed to parse event at offset %d: %v", message.Offset, err)
		return
	}
	w.logger.Debug("Received %s event for %s (partition %d, offset %d)", event.Type, event.Namespace, message.Partition, message.Offset)

	if err := w.processor.Process(ctx, event); err != nil {
		w.logger.Error("Failed to process %s event: %v", event.Type, err)
		return
	}
	w.logger.Debug("Event %s processed successfully", event.Type)
}

func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker...")
	return w.reader.Close()
}
