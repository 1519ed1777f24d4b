// Package service implements catalog management and the immutable
// snapshot reads the request pipeline depends on.
package service

import (
	"context"
	"errors"
	"log/slog"

	"nexus/internal/catalog/models"
	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/platform/audit"
	"nexus/pkg/platform/sentinel"
	"nexus/pkg/requestcontext"
)

// Store persists departments and services.
type Store interface {
	CreateDepartment(ctx context.Context, dept *models.Department) error
	UpdateDepartment(ctx context.Context, dept *models.Department) error
	GetDepartment(ctx context.Context, id domain.DepartmentID) (*models.Department, error)
	ListDepartments(ctx context.Context, activeOnly bool) ([]*models.Department, error)

	CreateService(ctx context.Context, svc *models.Service) error
	UpdateService(ctx context.Context, svc *models.Service) error
	GetService(ctx context.Context, id domain.ServiceID) (*models.Service, error)
	ListServicesByDepartment(ctx context.Context, departmentID domain.DepartmentID, activeOnly bool) ([]*models.Service, error)
}

type Service struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
}

func New(store Store, auditPublisher *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditPublisher, logger: logger}
}

// CreateDepartmentParams carries a validated department creation.
type CreateDepartmentParams struct {
	Name            string
	Description     string
	Code            string
	EndpointBaseURL string
	Icon            string
}

func (s *Service) CreateDepartment(ctx context.Context, params CreateDepartmentParams) (*models.Department, error) {
	dept, err := models.NewDepartment(params.Name, params.Description, params.Code,
		params.EndpointBaseURL, params.Icon, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateDepartment(ctx, dept); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a department with this name or code already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create department")
	}

	s.audit.Emit(ctx, audit.Event{
		Action:     string(audit.EventDepartmentCreated),
		UserID:     requestcontext.UserID(ctx),
		Department: string(dept.Code),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return dept, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, departmentID domain.DepartmentID, update models.DepartmentUpdate) (*models.Department, error) {
	dept, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}

	if err := dept.Apply(update, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	if err := s.store.UpdateDepartment(ctx, dept); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a department with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update department")
	}

	action := audit.EventDepartmentUpdated
	if update.IsActive != nil && !*update.IsActive {
		action = audit.EventDepartmentDisabled
	}
	s.audit.Emit(ctx, audit.Event{
		Action:     string(action),
		UserID:     requestcontext.UserID(ctx),
		Department: string(dept.Code),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return dept, nil
}

func (s *Service) GetDepartment(ctx context.Context, departmentID domain.DepartmentID) (*models.Department, error) {
	dept, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	return dept, nil
}

// ListDepartments returns departments. Citizens only see active ones;
// admins pass includeInactive.
func (s *Service) ListDepartments(ctx context.Context, includeInactive bool) ([]*models.Department, error) {
	depts, err := s.store.ListDepartments(ctx, !includeInactive)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list departments")
	}
	return depts, nil
}

// CreateServiceParams carries a validated service creation.
type CreateServiceParams struct {
	DepartmentID domain.DepartmentID
	Name         string
	Description  string
	EndpointPath string
	Method       string
	FormSchema   []models.FormField
	Icon         string
}

func (s *Service) CreateService(ctx context.Context, params CreateServiceParams) (*models.Service, error) {
	// The parent department must exist and be active; offering a service
	// under a disabled department would strand submissions.
	dept, err := s.store.GetDepartment(ctx, params.DepartmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "department not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	if !dept.IsActive {
		return nil, dErrors.New(dErrors.CodeConflict, "department is disabled")
	}

	svc, err := models.NewService(params.DepartmentID, params.Name, params.Description,
		params.EndpointPath, params.Method, params.FormSchema, params.Icon, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateService(ctx, svc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "this department already offers a service with this name")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create service")
	}

	s.audit.Emit(ctx, audit.Event{
		Action:     string(audit.EventServiceCreated),
		UserID:     requestcontext.UserID(ctx),
		Department: string(dept.Code),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, serviceID domain.ServiceID, update models.ServiceUpdate) (*models.Service, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}

	if err := svc.Apply(update, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	if err := s.store.UpdateService(ctx, svc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "this department already offers a service with this name")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update service")
	}

	action := audit.EventServiceUpdated
	if update.IsActive != nil && !*update.IsActive {
		action = audit.EventServiceDisabled
	}
	s.audit.Emit(ctx, audit.Event{
		Action:    string(action),
		UserID:    requestcontext.UserID(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
	return svc, nil
}

// ListServices returns a department's services. Citizens only see
// active ones.
func (s *Service) ListServices(ctx context.Context, departmentID domain.DepartmentID, includeInactive bool) ([]*models.Service, error) {
	services, err := s.store.ListServicesByDepartment(ctx, departmentID, !includeInactive)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list services")
	}
	return services, nil
}

// Snapshot is an immutable view of a service and its department taken
// at one point in time. The request pipeline works from snapshots so a
// catalog edit mid-flight cannot change where a submission is routed.
type Snapshot struct {
	Service    models.Service
	Department models.Department
}

// Snapshot resolves an active service and its active department.
// Inactive entries are indistinguishable from missing ones: citizens
// must not learn that a disabled service exists.
func (s *Service) Snapshot(ctx context.Context, serviceID domain.ServiceID) (*Snapshot, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
	}
	if !svc.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
	}

	dept, err := s.store.GetDepartment(ctx, svc.DepartmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load department")
	}
	if !dept.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "service not found")
	}

	return &Snapshot{Service: *svc, Department: *dept}, nil
}

// GetService returns one active service with its form schema, for
// citizens rendering the submission form. Same visibility rule as
// Snapshot.
func (s *Service) GetService(ctx context.Context, serviceID domain.ServiceID) (*models.Service, error) {
	snap, err := s.Snapshot(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	svc := snap.Service
	return &svc, nil
}
