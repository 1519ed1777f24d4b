// Package models holds the request ledger aggregate and its state
// machine.
package models

import (
	"fmt"
	"strings"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

// Status is the ledger state of a service request.
type Status string

const (
	// StatusPending means the request is recorded but no department
	// decision has been applied yet. Always the initial state.
	StatusPending Status = "PENDING"
	// StatusProcessing means the department acknowledged the request
	// and is working on it.
	StatusProcessing Status = "PROCESSING"
	// StatusAccepted is terminal.
	StatusAccepted Status = "ACCEPTED"
	// StatusRejected is terminal.
	StatusRejected Status = "REJECTED"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusAccepted:   true,
	StatusRejected:   true,
}

// ParseStatus parses and normalizes a status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !validStatuses[status] {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid status %q", raw))
	}
	return status, nil
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ServiceRequest is one ledger entry. Entries are never deleted;
// decisions on public services keep a permanent trail.
type ServiceRequest struct {
	ID           domain.RequestID
	CitizenID    domain.UserID
	ServiceID    domain.ServiceID
	DepartmentID domain.DepartmentID
	Payload      map[string]any

	Status         Status
	OfficerRemarks string
	ResponseData   map[string]any
	ProcessedBy    *domain.UserID
	ProcessedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewServiceRequest records a fresh submission. It always starts
// PENDING; any department response is applied afterwards.
func NewServiceRequest(citizenID domain.UserID, serviceID domain.ServiceID, departmentID domain.DepartmentID, payload map[string]any, now time.Time) *ServiceRequest {
	if payload == nil {
		payload = map[string]any{}
	}
	return &ServiceRequest{
		ID:           domain.NewRequestID(),
		CitizenID:    citizenID,
		ServiceID:    serviceID,
		DepartmentID: departmentID,
		Payload:      payload,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DelegationResult is what a department declared in its synchronous
// response to the submission call.
type DelegationResult struct {
	Status       Status // empty when the department declared none
	Remarks      string
	ResponseData map[string]any
}

// ApplyDelegationResult folds a department's synchronous response into
// the entry. Only valid immediately after creation, while the entry is
// still PENDING.
func (r *ServiceRequest) ApplyDelegationResult(result DelegationResult, now time.Time) error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot apply department response in state %s", r.Status))
	}
	if result.Status != "" {
		if !validStatuses[result.Status] {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("department declared invalid status %q", result.Status))
		}
		r.Status = result.Status
	}
	if result.Remarks != "" {
		r.OfficerRemarks = result.Remarks
	}
	if result.ResponseData != nil {
		r.ResponseData = result.ResponseData
	}
	r.UpdatedAt = now
	return nil
}

// CanDecide reports whether an officer decision is still possible.
func (r *ServiceRequest) CanDecide() bool {
	return !r.Status.IsTerminal()
}

// Decide applies an officer's terminal decision. Terminal states stick:
// deciding an already-decided request is an invariant violation, never
// a silent overwrite.
func (r *ServiceRequest) Decide(officer domain.UserID, outcome Status, remarks string, now time.Time) error {
	if outcome != StatusAccepted && outcome != StatusRejected {
		return dErrors.New(dErrors.CodeValidation, "decision must be ACCEPTED or REJECTED")
	}
	if outcome == StatusRejected && strings.TrimSpace(remarks) == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection requires remarks")
	}
	if !r.CanDecide() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("request already decided: %s", r.Status))
	}

	r.Status = outcome
	r.OfficerRemarks = strings.TrimSpace(remarks)
	r.ProcessedBy = &officer
	r.ProcessedAt = &now
	r.UpdatedAt = now
	return nil
}
