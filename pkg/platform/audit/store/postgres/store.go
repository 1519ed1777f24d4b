// Package postgres implements the audit store with the transactional outbox
// pattern. Events are written to the outbox table and published to Kafka by
// the outbox worker; Kafka is the downstream source of truth for audit feeds.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "nexus/pkg/domain"
	audit "nexus/pkg/platform/audit"
	txcontext "nexus/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for deserialization by consumers.
type outboxPayload struct {
	ID               string `json:"ID"`
	Category         string `json:"Category"`
	Timestamp        string `json:"Timestamp"`
	Action           string `json:"Action"`
	UserID           string `json:"UserID,omitempty"`
	ServiceRequestID string `json:"ServiceRequestID,omitempty"`
	Department       string `json:"Department,omitempty"`
	Decision         string `json:"Decision,omitempty"`
	Reason           string `json:"Reason,omitempty"`
	RequestID        string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category is always derived from the action; the eventCategories map is
	// the source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:         eventID.String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     event.Action,
		Department: event.Department,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}
	if !event.ServiceRequestID.IsNil() {
		payload.ServiceRequestID = event.ServiceRequestID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.ServiceRequestID.IsNil() {
		aggregateType = "service_request"
		aggregateID = event.ServiceRequestID.String()
	} else if !event.UserID.IsNil() {
		aggregateType = "user"
		aggregateID = event.UserID.String()
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, topic, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID, aggregateType, aggregateID, event.Action, category.Topic(), payloadBytes, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox: %w", err)
	}
	return nil
}

// ListByUser returns events recorded for a user, newest first. It reads from
// the outbox, which retains rows after publishing.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE aggregate_type = 'user' AND aggregate_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		event, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PendingBatch returns up to limit unpublished outbox rows, oldest first.
// Used by the outbox worker.
func (s *Store) PendingBatch(ctx context.Context, limit int) ([]OutboxRow, error) {
	query := `
		SELECT id, topic, aggregate_id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var batch []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Topic, &row.Key, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	return batch, rows.Err()
}

// MarkPublished stamps outbox rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	idStrings := make([]string, len(ids))
	for i, rowID := range ids {
		idStrings[i] = rowID.String()
	}
	if _, err := s.db.ExecContext(ctx, query, at, idStrings); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxRow is one unpublished audit event ready for Kafka.
type OutboxRow struct {
	ID      uuid.UUID
	Topic   string
	Key     string
	Payload []byte
}

func decodePayload(raw []byte) (audit.Event, error) {
	var p outboxPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	event := audit.Event{
		Category:   audit.EventCategory(p.Category),
		Action:     p.Action,
		Department: p.Department,
		Decision:   p.Decision,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if p.UserID != "" {
		if userID, err := id.ParseUserID(p.UserID); err == nil {
			event.UserID = userID
		}
	}
	if p.ServiceRequestID != "" {
		if reqID, err := id.ParseRequestID(p.ServiceRequestID); err == nil {
			event.ServiceRequestID = reqID
		}
	}
	return event, nil
}
