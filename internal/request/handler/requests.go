package handler

import (
	"strings"

	"nexus/internal/request/models"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /requests.
type SubmitRequest struct {
	ServiceID string         `json:"service_id"`
	Payload   map[string]any `json:"payload"`

	// Parsed values (populated by Validate)
	parsedServiceID domain.ServiceID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.ServiceID) == "" {
		return dErrors.New(dErrors.CodeValidation, "service_id is required")
	}
	serviceID, err := domain.ParseServiceID(r.ServiceID)
	if err != nil {
		return err
	}
	r.parsedServiceID = serviceID
	if r.Payload == nil {
		r.Payload = map[string]any{}
	}
	return nil
}

func (r *SubmitRequest) ParsedServiceID() domain.ServiceID { return r.parsedServiceID }

// DecideRequest is the HTTP request body for POST
// /department/requests/{requestID}/decision.
type DecideRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`

	parsedStatus models.Status
}

func (r *DecideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	if status != models.StatusAccepted && status != models.StatusRejected {
		return dErrors.New(dErrors.CodeValidation, "status must be ACCEPTED or REJECTED")
	}
	r.parsedStatus = status
	return nil
}

func (r *DecideRequest) ParsedStatus() models.Status { return r.parsedStatus }
