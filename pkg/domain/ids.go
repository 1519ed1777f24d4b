// Package domain holds shared domain primitives: typed identifiers and the
// small value types that cross module boundaries.
//
// Typed IDs prevent cross-type assignment at compile time (a RequestID can
// never be passed where a UserID is expected). Construct them via the Parse
// functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "nexus/pkg/domain-errors"
)

type (
	// UserID identifies a citizen, officer, or admin account.
	UserID uuid.UUID
	// RequestID identifies a ServiceRequest ledger entry. It is the
	// correlation key shared with department endpoints.
	RequestID uuid.UUID
	// ServiceID identifies a catalog service.
	ServiceID uuid.UUID
	// DepartmentID identifies a department.
	DepartmentID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// ParseUserID validates and constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseRequestID validates and constructs a RequestID from external input.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseServiceID validates and constructs a ServiceID from external input.
func ParseServiceID(s string) (ServiceID, error) {
	u, err := parseUUID(s, "service id")
	return ServiceID(u), err
}

// ParseDepartmentID validates and constructs a DepartmentID from external input.
func ParseDepartmentID(s string) (DepartmentID, error) {
	u, err := parseUUID(s, "department id")
	return DepartmentID(u), err
}

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id RequestID) String() string    { return uuid.UUID(id).String() }
func (id ServiceID) String() string    { return uuid.UUID(id).String() }
func (id DepartmentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ServiceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewRequestID mints a fresh request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewUserID mints a fresh user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewServiceID mints a fresh service identifier.
func NewServiceID() ServiceID { return ServiceID(uuid.New()) }

// NewDepartmentID mints a fresh department identifier.
func NewDepartmentID() DepartmentID { return DepartmentID(uuid.New()) }

// MarshalText implementations keep typed IDs JSON-friendly as UUID strings.

func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ServiceID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id DepartmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *RequestID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = RequestID(u)
	return nil
}

func (id *ServiceID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ServiceID(u)
	return nil
}

func (id *DepartmentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DepartmentID(u)
	return nil
}
