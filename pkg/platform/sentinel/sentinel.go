// Package sentinel defines sentinel errors for infrastructure facts. Stores
// return these (optionally wrapped) so services can translate them into coded
// domain errors without string matching.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: uniqueness or concurrent-update conflict
//   - ErrExpired: token or credential has expired
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: downstream service or resource temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
