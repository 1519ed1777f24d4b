// Package models holds the service catalog aggregates: departments and
// the public services they offer.
package models

import (
	"net/url"
	"strings"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

// Department is a government department reachable at a base URL. The
// gateway delegates citizen requests to it and scopes officer accounts
// by it.
type Department struct {
	ID              domain.DepartmentID
	Name            string
	Description     string
	Code            domain.DepartmentCode
	EndpointBaseURL string
	Icon            string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDepartment builds a department aggregate with a fresh ID.
func NewDepartment(name, description, code, endpointBaseURL, icon string, now time.Time) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	parsedCode, err := domain.ParseDepartmentCode(code)
	if err != nil {
		return nil, err
	}
	baseURL, err := normalizeBaseURL(endpointBaseURL)
	if err != nil {
		return nil, err
	}
	if icon == "" {
		icon = "building"
	}

	return &Department{
		ID:              domain.NewDepartmentID(),
		Name:            name,
		Description:     strings.TrimSpace(description),
		Code:            parsedCode,
		EndpointBaseURL: baseURL,
		Icon:            icon,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// DepartmentUpdate carries a partial update. Nil fields are left as-is.
type DepartmentUpdate struct {
	Name            *string
	Description     *string
	EndpointBaseURL *string
	Icon            *string
	IsActive        *bool
}

// Apply mutates the department with the given update.
func (d *Department) Apply(update DepartmentUpdate, now time.Time) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		d.Name = name
	}
	if update.Description != nil {
		d.Description = strings.TrimSpace(*update.Description)
	}
	if update.EndpointBaseURL != nil {
		baseURL, err := normalizeBaseURL(*update.EndpointBaseURL)
		if err != nil {
			return err
		}
		d.EndpointBaseURL = baseURL
	}
	if update.Icon != nil && *update.Icon != "" {
		d.Icon = *update.Icon
	}
	if update.IsActive != nil {
		d.IsActive = *update.IsActive
	}
	d.UpdatedAt = now
	return nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", dErrors.New(dErrors.CodeValidation, "endpoint_base_url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", dErrors.New(dErrors.CodeValidation, "endpoint_base_url must be an absolute http(s) URL")
	}
	return raw, nil
}
