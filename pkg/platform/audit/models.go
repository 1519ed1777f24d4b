// Package audit captures the gateway's append-only trail of citizen-visible
// actions. Events are written to a durable store in the same operation that
// caused them and fanned out to Kafka by the outbox worker.
package audit

import (
	"time"

	id "nexus/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and downstream routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: citizen
	// request submissions and officer decisions on public services. These
	// require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// failed logins, credential issues.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging delegation
	// behavior: outbound calls, unreachable departments.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string

	// UserID is the acting user (citizen, officer, or admin).
	UserID id.UserID
	// ServiceRequestID is the ledger entry involved, when applicable.
	ServiceRequestID id.RequestID
	// Department is the department code involved, when applicable.
	Department string
	// Decision is the terminal outcome for decision events.
	Decision string
	// Reason carries remarks or failure detail.
	Reason string
	// RequestID is the HTTP correlation ID from the request context.
	RequestID string
}

// AuditEvent names a recordable action.
type AuditEvent string

const (
	// Auth events
	EventUserRegistered AuditEvent = "user_registered"
	EventUserLoggedIn   AuditEvent = "user_logged_in"
	EventUserLoggedOut  AuditEvent = "user_logged_out"
	EventAuthFailed     AuditEvent = "auth_failed"

	// Request lifecycle events
	EventRequestSubmitted AuditEvent = "request_submitted"
	EventRequestAccepted  AuditEvent = "request_accepted"
	EventRequestRejected  AuditEvent = "request_rejected"

	// Delegation events
	EventRequestDelegated      AuditEvent = "request_delegated"
	EventDelegationUnreachable AuditEvent = "delegation_unreachable"
	EventDepartmentNotified    AuditEvent = "department_notified"
	EventNotifyFailed          AuditEvent = "notify_failed"

	// Catalog events
	EventDepartmentCreated  AuditEvent = "department_created"
	EventDepartmentUpdated  AuditEvent = "department_updated"
	EventDepartmentDisabled AuditEvent = "department_disabled"
	EventServiceCreated     AuditEvent = "service_created"
	EventServiceUpdated     AuditEvent = "service_updated"
	EventServiceDisabled    AuditEvent = "service_disabled"
)

// eventCategories is the source of truth for how actions are classified.
var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered: CategoryCompliance,
	EventUserLoggedIn:   CategoryOperations,
	EventUserLoggedOut:  CategoryOperations,
	EventAuthFailed:     CategorySecurity,

	EventRequestSubmitted: CategoryCompliance,
	EventRequestAccepted:  CategoryCompliance,
	EventRequestRejected:  CategoryCompliance,

	EventRequestDelegated:      CategoryOperations,
	EventDelegationUnreachable: CategoryOperations,
	EventDepartmentNotified:    CategoryOperations,
	EventNotifyFailed:          CategoryOperations,

	EventDepartmentCreated:  CategoryCompliance,
	EventDepartmentUpdated:  CategoryCompliance,
	EventDepartmentDisabled: CategoryCompliance,
	EventServiceCreated:     CategoryCompliance,
	EventServiceUpdated:     CategoryCompliance,
	EventServiceDisabled:    CategoryCompliance,
}

// Category returns the category for the action, defaulting to operations for
// unknown actions so nothing is silently dropped.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Topic returns the Kafka topic for a category.
func (c EventCategory) Topic() string {
	return "nexus.audit." + string(c)
}
