// Package postgres persists user accounts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexus/internal/auth/models"
	"nexus/pkg/domain"
	"nexus/pkg/platform/sentinel"

	"github.com/jackc/pgx/v5/pgconn"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, user *models.User) error {
	var deptID *string
	if user.DepartmentID != nil {
		v := user.DepartmentID.String()
		deptID = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		user.ID.String(),
		user.FullName,
		strings.ToLower(user.Email),
		user.PasswordHash,
		string(user.Role),
		deptID,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	return s.getBy(ctx, "id = $1", id.String())
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getBy(ctx, "email = $1", strings.ToLower(email))
}

func (s *Store) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, department_id, created_at
		FROM users
		WHERE `+where, arg)

	var (
		idStr     string
		user      models.User
		roleStr   string
		deptStr   sql.NullString
		createdAt time.Time
	)
	err := row.Scan(&idStr, &user.FullName, &user.Email, &user.PasswordHash, &roleStr, &deptStr, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	id, err := domain.ParseUserID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored user id: %w", err)
	}
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored role: %w", err)
	}
	user.ID = id
	user.Role = role
	user.CreatedAt = createdAt
	if deptStr.Valid {
		dept, err := domain.ParseDepartmentID(deptStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse stored department id: %w", err)
		}
		user.DepartmentID = &dept
	}
	return &user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
