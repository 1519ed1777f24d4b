// Package worker drains the audit outbox to Kafka. It is the only component
// that talks to both the outbox table and the Kafka producer, keeping request
// paths free of broker dependencies.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nexus/pkg/platform/audit/store/postgres"
)

// Source provides unpublished outbox rows and records delivery.
type Source interface {
	PendingBatch(ctx context.Context, limit int) ([]postgres.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer delivers one audit record to a topic. Delivery must be durable
// before returning nil.
type Producer interface {
	Produce(ctx context.Context, topic, key string, payload []byte) error
}

// Worker polls the outbox and forwards batches to Kafka. Rows stay in the
// outbox until delivery is acknowledged, so a crash re-delivers rather than
// drops (consumers must tolerate duplicates).
type Worker struct {
	source    Source
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func New(source Source, producer Producer, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		source:    source,
		producer:  producer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending rows. Partial progress is recorded: a
// failed produce stops the batch but already-published rows are marked.
func (w *Worker) Drain(ctx context.Context) error {
	batch, err := w.source.PendingBatch(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(batch))
	var produceErr error
	for _, row := range batch {
		if err := w.producer.Produce(ctx, row.Topic, row.Key, row.Payload); err != nil {
			produceErr = err
			break
		}
		published = append(published, row.ID)
	}

	if len(published) > 0 {
		if err := w.source.MarkPublished(ctx, published, time.Now()); err != nil {
			return err
		}
		w.logger.InfoContext(ctx, "audit events published",
			"count", len(published),
		)
	}
	return produceErr
}
