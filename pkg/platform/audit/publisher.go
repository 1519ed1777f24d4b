package audit

import (
	"context"
	"log/slog"
	"time"

	id "nexus/pkg/domain"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Publisher records structured audit events. It is append-only and delegates
// persistence to the store so tests can swap sinks easily.
//
// Emit is best-effort: a failed audit write is logged and never fails the
// calling operation. The ledger, not the audit trail, is the source of truth
// for request state.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit records an event, deriving category and timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if err := p.Record(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"error", err,
		)
	}
}

// Record appends an event and reports failure. Callers that write the
// event inside the same transaction as their mutation use Record so an
// outbox failure rolls the mutation back instead of being swallowed.
func (p *Publisher) Record(ctx context.Context, event Event) error {
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = timeNow()
	}
	return p.store.Append(ctx, event)
}

// List returns the events recorded for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
