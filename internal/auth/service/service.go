// Package service implements account registration, login, logout and
// token validation for the gateway.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nexus/internal/auth/jwttoken"
	"nexus/internal/auth/metrics"
	"nexus/internal/auth/models"
	"nexus/internal/platform/middleware"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/platform/audit"
	"nexus/pkg/platform/sentinel"
	"nexus/pkg/requestcontext"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Store persists user accounts.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id domain.UserID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationList tracks logged-out tokens until they expire.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	store      Store
	revocation RevocationList
	tokens     *jwttoken.JWTService
	tokenTTL   time.Duration
	audit      *audit.Publisher
	logger     *slog.Logger
}

func New(
	store Store,
	revocation RevocationList,
	tokens *jwttoken.JWTService,
	tokenTTL time.Duration,
	auditPublisher *audit.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		revocation: revocation,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		audit:      auditPublisher,
		logger:     logger,
	}
}

// RegisterParams carries a validated registration. The handler decides
// which roles a caller may create; the service enforces the model
// invariants.
type RegisterParams struct {
	Email        string
	Password     string
	FullName     string
	Role         domain.Role
	DepartmentID *domain.DepartmentID
}

// Register creates an account and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, string, error) {
	if len(params.Password) < minPasswordLength {
		return nil, "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := models.NewUser(params.Email, string(hash), params.FullName,
		params.Role, params.DepartmentID, requestcontext.Now(ctx))
	if err != nil {
		return nil, "", err
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(user.Role)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:    string(audit.EventUserRegistered),
		UserID:    user.ID,
		RequestID: requestcontext.RequestID(ctx),
	})
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh access
// token. Unknown email and wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("denied").Inc()
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	metrics.LoginsTotal.WithLabelValues("granted").Inc()
	return user, token, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.ValidateToken(rawToken)
	if err != nil {
		return err
	}

	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.revocation.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

// Me returns the authenticated caller's account.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// ValidateToken implements middleware.TokenValidator. It verifies the
// signature, then consults the revocation list.
func (s *Service) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: if the revocation list is unreachable we cannot
		// prove the token is still live.
		metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation check failed")
	}
	if revoked {
		metrics.TokenValidationsTotal.WithLabelValues("revoked").Inc()
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	out := &middleware.Claims{UserID: userID, Role: role}
	if claims.DepartmentID != "" {
		dept, err := domain.ParseDepartmentID(claims.DepartmentID)
		if err != nil {
			metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		out.DepartmentID = dept
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return out, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	dept := ""
	if user.DepartmentID != nil {
		dept = user.DepartmentID.String()
	}
	token, err := s.tokens.GenerateAccessToken(uuid.UUID(user.ID), string(user.Role), dept, s.tokenTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return token, nil
}
