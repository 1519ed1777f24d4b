// Package postgres persists the request ledger.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"nexus/internal/request/models"
	"nexus/pkg/domain"
	"nexus/pkg/platform/sentinel"
	txcontext "nexus/pkg/platform/tx"

	"github.com/jackc/pgx/v5/pgconn"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the context transaction when one is running, so ledger
// writes commit atomically with the audit outbox.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Create(ctx context.Context, req *models.ServiceRequest) error {
	payload, responseData, err := marshalJSONFields(req)
	if err != nil {
		return err
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO service_requests
			(id, citizen_id, service_id, department_id, payload, status, officer_remarks, response_data, processed_by, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID.String(), req.CitizenID.String(), req.ServiceID.String(), req.DepartmentID.String(),
		payload, string(req.Status), req.OfficerRemarks, responseData,
		processedBy(req), req.ProcessedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert service request: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, req *models.ServiceRequest) error {
	payload, responseData, err := marshalJSONFields(req)
	if err != nil {
		return err
	}

	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE service_requests
		SET payload = $2, status = $3, officer_remarks = $4, response_data = $5,
		    processed_by = $6, processed_at = $7, updated_at = $8
		WHERE id = $1`,
		req.ID.String(), payload, string(req.Status), req.OfficerRemarks, responseData,
		processedBy(req), req.ProcessedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, requestID domain.RequestID) (*models.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, requestID.String())
	return scanRequest(row)
}

func (s *Store) ListByCitizen(ctx context.Context, citizenID domain.UserID) ([]*models.ServiceRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE citizen_id = $1 ORDER BY created_at DESC`, citizenID.String())
	if err != nil {
		return nil, fmt.Errorf("list by citizen: %w", err)
	}
	return collect(rows)
}

func (s *Store) ListByDepartment(ctx context.Context, departmentID domain.DepartmentID, status *models.Status) ([]*models.ServiceRequest, error) {
	query := selectColumns + ` WHERE department_id = $1`
	args := []any{departmentID.String()}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by department: %w", err)
	}
	return collect(rows)
}

// CountByDepartmentStatus returns how many ledger entries a department
// has per status. Used by the stats reads.
func (s *Store) CountByDepartmentStatus(ctx context.Context, departmentID domain.DepartmentID) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM service_requests
		WHERE department_id = $1
		GROUP BY status`, departmentID.String())
	if err != nil {
		return nil, fmt.Errorf("count by department: %w", err)
	}
	defer rows.Close()
	return collectCounts(rows)
}

// CountByStatus returns global per-status counts.
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM service_requests
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	return collectCounts(rows)
}

const selectColumns = `
	SELECT id, citizen_id, service_id, department_id, payload, status, officer_remarks,
	       response_data, processed_by, processed_at, created_at, updated_at
	FROM service_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func collect(rows *sql.Rows) ([]*models.ServiceRequest, error) {
	defer rows.Close()
	var out []*models.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func collectCounts(rows *sql.Rows) (map[models.Status]int, error) {
	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

func scanRequest(row rowScanner) (*models.ServiceRequest, error) {
	var (
		req            models.ServiceRequest
		idStr          string
		citizenStr     string
		serviceStr     string
		deptStr        string
		payloadRaw     []byte
		statusStr      string
		responseRaw    []byte
		processedByStr sql.NullString
		processedAt    sql.NullTime
	)
	err := row.Scan(&idStr, &citizenStr, &serviceStr, &deptStr, &payloadRaw, &statusStr,
		&req.OfficerRemarks, &responseRaw, &processedByStr, &processedAt, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan service request: %w", err)
	}

	if req.ID, err = domain.ParseRequestID(idStr); err != nil {
		return nil, fmt.Errorf("parse stored request id: %w", err)
	}
	if req.CitizenID, err = domain.ParseUserID(citizenStr); err != nil {
		return nil, fmt.Errorf("parse stored citizen id: %w", err)
	}
	if req.ServiceID, err = domain.ParseServiceID(serviceStr); err != nil {
		return nil, fmt.Errorf("parse stored service id: %w", err)
	}
	if req.DepartmentID, err = domain.ParseDepartmentID(deptStr); err != nil {
		return nil, fmt.Errorf("parse stored department id: %w", err)
	}
	req.Status = models.Status(statusStr)

	if err := json.Unmarshal(payloadRaw, &req.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(responseRaw) > 0 {
		if err := json.Unmarshal(responseRaw, &req.ResponseData); err != nil {
			return nil, fmt.Errorf("decode response data: %w", err)
		}
	}
	if processedByStr.Valid {
		officer, err := domain.ParseUserID(processedByStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse stored officer id: %w", err)
		}
		req.ProcessedBy = &officer
	}
	if processedAt.Valid {
		at := processedAt.Time
		req.ProcessedAt = &at
	}
	return &req, nil
}

func marshalJSONFields(req *models.ServiceRequest) (payload, responseData []byte, err error) {
	payload, err = json.Marshal(req.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	if req.ResponseData != nil {
		responseData, err = json.Marshal(req.ResponseData)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal response data: %w", err)
		}
	}
	return payload, responseData, nil
}

func processedBy(req *models.ServiceRequest) *string {
	if req.ProcessedBy == nil {
		return nil
	}
	v := req.ProcessedBy.String()
	return &v
}
