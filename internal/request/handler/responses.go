package handler

import (
	"time"

	"nexus/internal/request/models"
)

// RequestResponse is the HTTP view of a ledger entry.
type RequestResponse struct {
	ID             string         `json:"id"`
	CitizenID      string         `json:"citizen_id"`
	ServiceID      string         `json:"service_id"`
	DepartmentID   string         `json:"department_id"`
	Payload        map[string]any `json:"payload"`
	Status         string         `json:"status"`
	OfficerRemarks string         `json:"officer_remarks,omitempty"`
	ResponseData   map[string]any `json:"response_data,omitempty"`
	ProcessedBy    string         `json:"processed_by,omitempty"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// FromRequest converts a ledger entry to its HTTP representation.
func FromRequest(req *models.ServiceRequest) RequestResponse {
	resp := RequestResponse{
		ID:             req.ID.String(),
		CitizenID:      req.CitizenID.String(),
		ServiceID:      req.ServiceID.String(),
		DepartmentID:   req.DepartmentID.String(),
		Payload:        req.Payload,
		Status:         string(req.Status),
		OfficerRemarks: req.OfficerRemarks,
		ResponseData:   req.ResponseData,
		ProcessedAt:    req.ProcessedAt,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
	if req.ProcessedBy != nil {
		resp.ProcessedBy = req.ProcessedBy.String()
	}
	return resp
}

func FromRequests(reqs []*models.ServiceRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, FromRequest(req))
	}
	return out
}
