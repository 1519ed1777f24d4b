package handler

import (
	"strings"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

const maxFieldLength = 255

// RegisterRequest is the HTTP request body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	if len(r.Email) > maxFieldLength || len(r.FullName) > maxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	return nil
}

// CreateUserRequest is the HTTP request body for POST /admin/users.
type CreateUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`

	// Parsed values (populated by Validate)
	parsedRole         domain.Role
	parsedDepartmentID *domain.DepartmentID
}

func (r *CreateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}

	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role

	if r.DepartmentID != "" {
		dept, err := domain.ParseDepartmentID(r.DepartmentID)
		if err != nil {
			return err
		}
		r.parsedDepartmentID = &dept
	}
	return nil
}

func (r *CreateUserRequest) ParsedRole() domain.Role { return r.parsedRole }

func (r *CreateUserRequest) ParsedDepartmentID() *domain.DepartmentID { return r.parsedDepartmentID }

// LoginRequest is the HTTP request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
