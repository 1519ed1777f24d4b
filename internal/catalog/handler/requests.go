package handler

import (
	"strings"

	"nexus/internal/catalog/models"
	dErrors "nexus/pkg/domain-errors"
)

// CreateDepartmentRequest is the HTTP request body for POST /admin/departments.
type CreateDepartmentRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Code            string `json:"code"`
	EndpointBaseURL string `json:"endpoint_base_url"`
	Icon            string `json:"icon"`
}

// Validate validates the request. Deeper shape checks live on the model.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateDepartmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.Code) == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if strings.TrimSpace(r.EndpointBaseURL) == "" {
		return dErrors.New(dErrors.CodeValidation, "endpoint_base_url is required")
	}
	return nil
}

// UpdateDepartmentRequest is the HTTP request body for PATCH
// /admin/departments/{departmentID}. Absent fields are left unchanged.
type UpdateDepartmentRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	EndpointBaseURL *string `json:"endpoint_base_url"`
	Icon            *string `json:"icon"`
	IsActive        *bool   `json:"is_active"`
}

func (r *UpdateDepartmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == nil && r.Description == nil && r.EndpointBaseURL == nil && r.Icon == nil && r.IsActive == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	return nil
}

func (r *UpdateDepartmentRequest) ToUpdate() models.DepartmentUpdate {
	return models.DepartmentUpdate{
		Name:            r.Name,
		Description:     r.Description,
		EndpointBaseURL: r.EndpointBaseURL,
		Icon:            r.Icon,
		IsActive:        r.IsActive,
	}
}

// CreateServiceRequest is the HTTP request body for POST
// /admin/departments/{departmentID}/services.
type CreateServiceRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	EndpointPath string             `json:"endpoint_path"`
	Method       string             `json:"method"`
	FormSchema   []models.FormField `json:"form_schema"`
	Icon         string             `json:"icon"`
}

func (r *CreateServiceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.EndpointPath) == "" {
		return dErrors.New(dErrors.CodeValidation, "endpoint_path is required")
	}
	return nil
}

// UpdateServiceRequest is the HTTP request body for PATCH
// /admin/services/{serviceID}. Absent fields are left unchanged.
type UpdateServiceRequest struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	EndpointPath *string             `json:"endpoint_path"`
	Method       *string             `json:"method"`
	FormSchema   *[]models.FormField `json:"form_schema"`
	Icon         *string             `json:"icon"`
	IsActive     *bool               `json:"is_active"`
}

func (r *UpdateServiceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == nil && r.Description == nil && r.EndpointPath == nil && r.Method == nil &&
		r.FormSchema == nil && r.Icon == nil && r.IsActive == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	return nil
}

func (r *UpdateServiceRequest) ToUpdate() models.ServiceUpdate {
	return models.ServiceUpdate{
		Name:         r.Name,
		Description:  r.Description,
		EndpointPath: r.EndpointPath,
		Method:       r.Method,
		FormSchema:   r.FormSchema,
		Icon:         r.Icon,
		IsActive:     r.IsActive,
	}
}
