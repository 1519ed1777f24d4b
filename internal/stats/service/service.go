// Package service aggregates read-only counters for officer and admin
// dashboards. Counts come straight from the stores; nothing here mutates
// state.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	requestmodels "nexus/internal/request/models"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/requestcontext"
)

// RequestCounter exposes the ledger count queries.
type RequestCounter interface {
	CountByDepartmentStatus(ctx context.Context, departmentID domain.DepartmentID) (map[requestmodels.Status]int, error)
	CountByStatus(ctx context.Context) (map[requestmodels.Status]int, error)
}

// UserCounter exposes the account count query.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// CatalogCounter exposes the catalog count queries.
type CatalogCounter interface {
	CountDepartments(ctx context.Context) (int, error)
	CountServices(ctx context.Context) (int, error)
}

// DepartmentSummary is an officer's view of their own queue.
type DepartmentSummary struct {
	DepartmentID domain.DepartmentID
	Pending      int
	Processing   int
	Accepted     int
	Rejected     int
	Total        int
}

// GlobalSummary is the admin-wide view.
type GlobalSummary struct {
	Users       int
	Departments int
	Services    int
	Requests    map[requestmodels.Status]int
	Total       int
}

type Service struct {
	requests RequestCounter
	users    UserCounter
	catalog  CatalogCounter
	logger   *slog.Logger
}

func New(requests RequestCounter, users UserCounter, catalog CatalogCounter, logger *slog.Logger) *Service {
	return &Service{
		requests: requests,
		users:    users,
		catalog:  catalog,
		logger:   logger.With("component", "stats_service"),
	}
}

// ForDepartment returns per-status counts for the calling officer's
// department.
func (s *Service) ForDepartment(ctx context.Context) (*DepartmentSummary, error) {
	deptID := requestcontext.DepartmentID(ctx)
	if deptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeForbidden, "officer has no department")
	}

	counts, err := s.requests.CountByDepartmentStatus(ctx, deptID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count department requests")
	}

	summary := &DepartmentSummary{
		DepartmentID: deptID,
		Pending:      counts[requestmodels.StatusPending],
		Processing:   counts[requestmodels.StatusProcessing],
		Accepted:     counts[requestmodels.StatusAccepted],
		Rejected:     counts[requestmodels.StatusRejected],
	}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

// Global returns platform-wide totals. The four queries are independent,
// so they run concurrently.
func (s *Service) Global(ctx context.Context) (*GlobalSummary, error) {
	var summary GlobalSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.CountUsers(gctx)
		summary.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.catalog.CountDepartments(gctx)
		summary.Departments = n
		return err
	})
	g.Go(func() error {
		n, err := s.catalog.CountServices(gctx)
		summary.Services = n
		return err
	})
	g.Go(func() error {
		counts, err := s.requests.CountByStatus(gctx)
		summary.Requests = counts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate statistics")
	}

	if summary.Requests == nil {
		summary.Requests = make(map[requestmodels.Status]int)
	}
	for _, n := range summary.Requests {
		summary.Total += n
	}
	return &summary, nil
}
