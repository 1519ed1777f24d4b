package domain

import (
	"strings"

	dErrors "nexus/pkg/domain-errors"
)

// DepartmentCode is the short uppercase code a department is known by across
// the delegation boundary (for example HEALTHCARE or AGRICULTURE). It is the
// audience of minted service credentials.
//
// Invariant: 2-32 characters, uppercase letters and underscores only.
type DepartmentCode string

// ParseDepartmentCode constructs a DepartmentCode from external input,
// normalizing to uppercase.
func ParseDepartmentCode(s string) (DepartmentCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 32 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "department code must be 2-32 characters")
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "department code must contain only letters and underscores")
		}
	}
	return DepartmentCode(s), nil
}

func (c DepartmentCode) String() string { return string(c) }

// IsNil reports whether the code is unset.
func (c DepartmentCode) IsNil() bool { return c == "" }
