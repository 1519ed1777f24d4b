package handler

import (
	requestmodels "nexus/internal/request/models"
	"nexus/internal/stats/service"
)

type DepartmentStatsResponse struct {
	DepartmentID string `json:"department_id"`
	Pending      int    `json:"pending"`
	Processing   int    `json:"processing"`
	Accepted     int    `json:"accepted"`
	Rejected     int    `json:"rejected"`
	Total        int    `json:"total"`
}

func FromDepartmentSummary(s *service.DepartmentSummary) DepartmentStatsResponse {
	return DepartmentStatsResponse{
		DepartmentID: s.DepartmentID.String(),
		Pending:      s.Pending,
		Processing:   s.Processing,
		Accepted:     s.Accepted,
		Rejected:     s.Rejected,
		Total:        s.Total,
	}
}

type GlobalStatsResponse struct {
	Users           int            `json:"users"`
	Departments     int            `json:"departments"`
	Services        int            `json:"services"`
	RequestsByState map[string]int `json:"requests_by_status"`
	TotalRequests   int            `json:"total_requests"`
}

func FromGlobalSummary(s *service.GlobalSummary) GlobalStatsResponse {
	byStatus := make(map[string]int, len(s.Requests))
	for status, n := range s.Requests {
		byStatus[string(status)] = n
	}
	// Always render the full status set so dashboards get stable keys.
	for _, status := range []requestmodels.Status{
		requestmodels.StatusPending, requestmodels.StatusProcessing,
		requestmodels.StatusAccepted, requestmodels.StatusRejected,
	} {
		if _, ok := byStatus[string(status)]; !ok {
			byStatus[string(status)] = 0
		}
	}
	return GlobalStatsResponse{
		Users:           s.Users,
		Departments:     s.Departments,
		Services:        s.Services,
		RequestsByState: byStatus,
		TotalRequests:   s.Total,
	}
}
