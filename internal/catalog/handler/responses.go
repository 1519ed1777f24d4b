package handler

import (
	"time"

	"nexus/internal/catalog/models"
)

// DepartmentResponse is the HTTP view of a department.
type DepartmentResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Code            string    `json:"code"`
	EndpointBaseURL string    `json:"endpoint_base_url"`
	Icon            string    `json:"icon"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ServiceResponse is the HTTP view of a service.
type ServiceResponse struct {
	ID           string             `json:"id"`
	DepartmentID string             `json:"department_id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	EndpointPath string             `json:"endpoint_path"`
	Method       string             `json:"method"`
	FormSchema   []models.FormField `json:"form_schema"`
	Icon         string             `json:"icon"`
	IsActive     bool               `json:"is_active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func FromDepartment(dept *models.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:              dept.ID.String(),
		Name:            dept.Name,
		Description:     dept.Description,
		Code:            string(dept.Code),
		EndpointBaseURL: dept.EndpointBaseURL,
		Icon:            dept.Icon,
		IsActive:        dept.IsActive,
		CreatedAt:       dept.CreatedAt,
		UpdatedAt:       dept.UpdatedAt,
	}
}

func FromDepartments(depts []*models.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(depts))
	for _, dept := range depts {
		out = append(out, FromDepartment(dept))
	}
	return out
}

func FromService(svc *models.Service) ServiceResponse {
	schema := svc.FormSchema
	if schema == nil {
		schema = []models.FormField{}
	}
	return ServiceResponse{
		ID:           svc.ID.String(),
		DepartmentID: svc.DepartmentID.String(),
		Name:         svc.Name,
		Description:  svc.Description,
		EndpointPath: svc.EndpointPath,
		Method:       svc.Method,
		FormSchema:   schema,
		Icon:         svc.Icon,
		IsActive:     svc.IsActive,
		CreatedAt:    svc.CreatedAt,
		UpdatedAt:    svc.UpdatedAt,
	}
}

func FromServices(services []*models.Service) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, FromService(svc))
	}
	return out
}
