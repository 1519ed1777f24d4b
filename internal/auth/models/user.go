package models

import (
	"strings"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
)

// User is an account in the gateway. Citizens submit service requests,
// officers decide requests for their department, admins manage the catalog.
type User struct {
	ID           domain.UserID
	Email        string
	PasswordHash string
	FullName     string
	Role         domain.Role
	// DepartmentID is set only for officers and scopes which requests
	// they may see and decide.
	DepartmentID *domain.DepartmentID
	CreatedAt    time.Time
}

// NewUser builds a user aggregate with a fresh ID, validating the
// role/department pairing.
func NewUser(email, passwordHash, fullName string, role domain.Role, departmentID *domain.DepartmentID, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if fullName = strings.TrimSpace(fullName); fullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if role == domain.RoleOfficer && departmentID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "officers must belong to a department")
	}
	if role != domain.RoleOfficer && departmentID != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "only officers belong to a department")
	}

	return &User{
		ID:           domain.NewUserID(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		DepartmentID: departmentID,
		CreatedAt:    now,
	}, nil
}

// IsOfficerOf reports whether the user is an officer assigned to the
// given department.
func (u *User) IsOfficerOf(dept domain.DepartmentID) bool {
	return u.Role == domain.RoleOfficer && u.DepartmentID != nil && *u.DepartmentID == dept
}
