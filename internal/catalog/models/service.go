package models

import (
	"fmt"
	"strings"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

var allowedMethods = map[string]bool{
	"GET":  true,
	"POST": true,
	"PUT":  true,
}

var allowedFieldTypes = map[string]bool{
	"text":     true,
	"number":   true,
	"date":     true,
	"select":   true,
	"textarea": true,
	"file":     true,
}

// FormField describes one input in a service's citizen-facing form. The
// gateway only enforces required-field presence; departments own any
// deeper semantics.
type FormField struct {
	FieldName string   `json:"field_name"`
	Label     string   `json:"label"`
	FieldType string   `json:"field_type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
}

// Service is one public service offered by a department.
type Service struct {
	ID           domain.ServiceID
	DepartmentID domain.DepartmentID
	Name         string
	Description  string
	EndpointPath string
	Method       string
	FormSchema   []FormField
	Icon         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewService builds a service aggregate with a fresh ID.
func NewService(departmentID domain.DepartmentID, name, description, endpointPath, method string, schema []FormField, icon string, now time.Time) (*Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	endpointPath = strings.TrimSpace(endpointPath)
	if endpointPath == "" || !strings.HasPrefix(endpointPath, "/") {
		return nil, dErrors.New(dErrors.CodeValidation, "endpoint_path must start with /")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "POST"
	}
	if !allowedMethods[method] {
		return nil, dErrors.New(dErrors.CodeValidation, "method must be one of GET, POST, PUT")
	}
	if err := validateSchema(schema); err != nil {
		return nil, err
	}
	if icon == "" {
		icon = "file-text"
	}

	return &Service{
		ID:           domain.NewServiceID(),
		DepartmentID: departmentID,
		Name:         name,
		Description:  strings.TrimSpace(description),
		EndpointPath: endpointPath,
		Method:       method,
		FormSchema:   schema,
		Icon:         icon,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ServiceUpdate carries a partial update. Nil fields are left as-is.
type ServiceUpdate struct {
	Name         *string
	Description  *string
	EndpointPath *string
	Method       *string
	FormSchema   *[]FormField
	Icon         *string
	IsActive     *bool
}

// Apply mutates the service with the given update.
func (s *Service) Apply(update ServiceUpdate, now time.Time) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		s.Name = name
	}
	if update.Description != nil {
		s.Description = strings.TrimSpace(*update.Description)
	}
	if update.EndpointPath != nil {
		path := strings.TrimSpace(*update.EndpointPath)
		if path == "" || !strings.HasPrefix(path, "/") {
			return dErrors.New(dErrors.CodeValidation, "endpoint_path must start with /")
		}
		s.EndpointPath = path
	}
	if update.Method != nil {
		method := strings.ToUpper(strings.TrimSpace(*update.Method))
		if !allowedMethods[method] {
			return dErrors.New(dErrors.CodeValidation, "method must be one of GET, POST, PUT")
		}
		s.Method = method
	}
	if update.FormSchema != nil {
		if err := validateSchema(*update.FormSchema); err != nil {
			return err
		}
		s.FormSchema = *update.FormSchema
	}
	if update.Icon != nil && *update.Icon != "" {
		s.Icon = *update.Icon
	}
	if update.IsActive != nil {
		s.IsActive = *update.IsActive
	}
	s.UpdatedAt = now
	return nil
}

// ValidatePayload checks a citizen submission against the form schema.
// Only required-field presence is enforced at the gateway; departments
// validate values.
func (s *Service) ValidatePayload(payload map[string]any) error {
	for _, field := range s.FormSchema {
		if !field.Required {
			continue
		}
		value, ok := payload[field.FieldName]
		if !ok || value == nil {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("required field %q is missing", field.FieldName))
		}
		if str, isString := value.(string); isString && strings.TrimSpace(str) == "" {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("required field %q is empty", field.FieldName))
		}
	}
	return nil
}

func validateSchema(schema []FormField) error {
	seen := make(map[string]bool, len(schema))
	for _, field := range schema {
		if strings.TrimSpace(field.FieldName) == "" {
			return dErrors.New(dErrors.CodeValidation, "form fields must have a field_name")
		}
		if seen[field.FieldName] {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("duplicate form field %q", field.FieldName))
		}
		seen[field.FieldName] = true
		if !allowedFieldTypes[field.FieldType] {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("unsupported field type %q", field.FieldType))
		}
		if field.FieldType == "select" && len(field.Options) == 0 {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("select field %q needs options", field.FieldName))
		}
	}
	return nil
}
