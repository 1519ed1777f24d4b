// Package postgres persists the service catalog.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"nexus/internal/catalog/models"
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

func (s *Store) CreateDepartment(ctx context.Context, dept *models.Department) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, description, code, endpoint_base_url, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dept.ID.String(), dept.Name, dept.Description, string(dept.Code),
		dept.EndpointBaseURL, dept.Icon, dept.IsActive, dept.CreatedAt, dept.UpdatedAt,
	)
	return mapWriteErr(err, "insert department")
}

func (s *Store) UpdateDepartment(ctx context.Context, dept *models.Department) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE departments
		SET name = $2, description = $3, endpoint_base_url = $4, icon = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		dept.ID.String(), dept.Name, dept.Description,
		dept.EndpointBaseURL, dept.Icon, dept.IsActive, dept.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr(err, "update department")
	}
	return requireRow(res)
}

func (s *Store) GetDepartment(ctx context.Context, departmentID domain.DepartmentID) (*models.Department, error) {
	row := s.db.QueryRowContext(ctx, departmentColumns+` WHERE id = $1`, departmentID.String())
	return scanDepartment(row)
}

func (s *Store) ListDepartments(ctx context.Context, activeOnly bool) ([]*models.Department, error) {
	query := departmentColumns
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []*models.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	schema, err := json.Marshal(svc.FormSchema)
	if err != nil {
		return fmt.Errorf("marshal form schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO services (id, department_id, name, description, endpoint_path, method, form_schema, icon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		svc.ID.String(), svc.DepartmentID.String(), svc.Name, svc.Description,
		svc.EndpointPath, svc.Method, schema, svc.Icon, svc.IsActive, svc.CreatedAt, svc.UpdatedAt,
	)
	return mapWriteErr(err, "insert service")
}

func (s *Store) UpdateService(ctx context.Context, svc *models.Service) error {
	schema, err := json.Marshal(svc.FormSchema)
	if err != nil {
		return fmt.Errorf("marshal form schema: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $2, description = $3, endpoint_path = $4, method = $5, form_schema = $6, icon = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		svc.ID.String(), svc.Name, svc.Description, svc.EndpointPath,
		svc.Method, schema, svc.Icon, svc.IsActive, svc.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr(err, "update service")
	}
	return requireRow(res)
}

func (s *Store) GetService(ctx context.Context, serviceID domain.ServiceID) (*models.Service, error) {
	row := s.db.QueryRowContext(ctx, serviceColumns+` WHERE id = $1`, serviceID.String())
	return scanService(row)
}

func (s *Store) ListServicesByDepartment(ctx context.Context, departmentID domain.DepartmentID, activeOnly bool) ([]*models.Service, error) {
	query := serviceColumns + ` WHERE department_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, departmentID.String())
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) CountDepartments(ctx context.Context) (int, error) {
	return s.count(ctx, "departments")
}

func (s *Store) CountServices(ctx context.Context) (int, error) {
	return s.count(ctx, "services")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

const departmentColumns = `
	SELECT id, name, description, code, endpoint_base_url, icon, is_active, created_at, updated_at
	FROM departments`

const serviceColumns = `
	SELECT id, department_id, name, description, endpoint_path, method, form_schema, icon, is_active, created_at, updated_at
	FROM services`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (*models.Department, error) {
	var (
		dept    models.Department
		idStr   string
		codeStr string
	)
	err := row.Scan(&idStr, &dept.Name, &dept.Description, &codeStr,
		&dept.EndpointBaseURL, &dept.Icon, &dept.IsActive, &dept.CreatedAt, &dept.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan department: %w", err)
	}

	id, err := domain.ParseDepartmentID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored department id: %w", err)
	}
	code, err := domain.ParseDepartmentCode(codeStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored department code: %w", err)
	}
	dept.ID = id
	dept.Code = code
	return &dept, nil
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc       models.Service
		idStr     string
		deptStr   string
		schemaRaw []byte
	)
	err := row.Scan(&idStr, &deptStr, &svc.Name, &svc.Description, &svc.EndpointPath,
		&svc.Method, &schemaRaw, &svc.Icon, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan service: %w", err)
	}

	id, err := domain.ParseServiceID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored service id: %w", err)
	}
	deptID, err := domain.ParseDepartmentID(deptStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored department id: %w", err)
	}
	svc.ID = id
	svc.DepartmentID = deptID
	if err := json.Unmarshal(schemaRaw, &svc.FormSchema); err != nil {
		return nil, fmt.Errorf("decode form schema: %w", err)
	}
	return &svc, nil
}

func mapWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return sentinel.ErrConflict
		case "23503":
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
