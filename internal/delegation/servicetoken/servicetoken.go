// Package servicetoken mints the short-lived credentials the gateway
// presents to department services. These are separate from citizen
// access tokens: departments trust the gateway, not the citizen, and a
// leaked credential must age out in minutes.
package servicetoken

import (
	"errors"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer identifies the gateway platform in service credentials.
	Issuer = "NEXUS"
	// ServiceName identifies the calling service.
	ServiceName = "NEXUS_GATEWAY"
	// ScopeForwardRequest authorizes delivering a citizen request to a
	// department endpoint.
	ScopeForwardRequest = "FORWARD_REQUEST"
)

// Claims are the service credential claims presented to departments.
type Claims struct {
	Service    string   `json:"service"`
	Department string   `json:"department"`
	Scope      []string `json:"scope"`
	jwt.RegisteredClaims
}

// Minter signs service credentials scoped to one department per token.
type Minter struct {
	signingKey []byte
	ttl        time.Duration
}

// NewMinter constructs a minter. The signing key is mandatory: running
// without one would let anyone forge department credentials.
func NewMinter(signingKey string, ttl time.Duration) (*Minter, error) {
	if signingKey == "" {
		return nil, errors.New("service token signing key is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Minter{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// Mint issues a credential for one department with the given scope.
func (m *Minter) Mint(department domain.DepartmentCode, scope []string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Service:    ServiceName,
		Department: string(department),
		Scope:      scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{string(department)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.signingKey)
}

// TTL returns the credential lifetime.
func (m *Minter) TTL() time.Duration { return m.ttl }

// Verifier checks service credentials on behalf of one department. The
// gateway does not use it in the request path; it exists for department
// services (and the mock department) that share the signing key.
type Verifier struct {
	signingKey []byte
	department domain.DepartmentCode
}

func NewVerifier(signingKey string, department domain.DepartmentCode) (*Verifier, error) {
	if signingKey == "" {
		return nil, errors.New("service token signing key is required")
	}
	return &Verifier{signingKey: []byte(signingKey), department: department}, nil
}

// Verify parses the credential and checks it was minted by the gateway
// for this department. A valid token for a different department is
// rejected: credentials are single-audience.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(string(v.department)))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "service credential has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid service credential")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid service credential")
	}
	if claims.Service != ServiceName || claims.Department != string(v.department) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential was minted for a different department")
	}
	return claims, nil
}
