package audit

import (
	"context"

	id "nexus/pkg/domain"
)

// Store persists audit events. The production implementation writes to the
// outbox table; tests use the in-memory store.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
