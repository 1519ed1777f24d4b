// Package memory provides an in-memory catalog store for tests and
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	"nexus/internal/catalog/models"
	"nexus/pkg/domain"
	"nexus/pkg/platform/sentinel"
)

type Store struct {
	mu          sync.RWMutex
	departments map[domain.DepartmentID]*models.Department
	services    map[domain.ServiceID]*models.Service
}

func NewStore() *Store {
	return &Store{
		departments: make(map[domain.DepartmentID]*models.Department),
		services:    make(map[domain.ServiceID]*models.Service),
	}
}

func (s *Store) CreateDepartment(_ context.Context, dept *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.departments {
		if existing.Code == dept.Code || existing.Name == dept.Name {
			return sentinel.ErrConflict
		}
	}
	cp := cloneDepartment(dept)
	s.departments[dept.ID] = cp
	return nil
}

func (s *Store) UpdateDepartment(_ context.Context, dept *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[dept.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.departments {
		if id != dept.ID && existing.Name == dept.Name {
			return sentinel.ErrConflict
		}
	}
	s.departments[dept.ID] = cloneDepartment(dept)
	return nil
}

func (s *Store) GetDepartment(_ context.Context, id domain.DepartmentID) (*models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dept, ok := s.departments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDepartment(dept), nil
}

func (s *Store) ListDepartments(_ context.Context, activeOnly bool) ([]*models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Department, 0, len(s.departments))
	for _, dept := range s.departments {
		if activeOnly && !dept.IsActive {
			continue
		}
		out = append(out, cloneDepartment(dept))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateService(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[svc.DepartmentID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.services {
		if existing.DepartmentID == svc.DepartmentID && existing.Name == svc.Name {
			return sentinel.ErrConflict
		}
	}
	s.services[svc.ID] = cloneService(svc)
	return nil
}

func (s *Store) UpdateService(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[svc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.services {
		if id != svc.ID && existing.DepartmentID == svc.DepartmentID && existing.Name == svc.Name {
			return sentinel.ErrConflict
		}
	}
	s.services[svc.ID] = cloneService(svc)
	return nil
}

func (s *Store) GetService(_ context.Context, id domain.ServiceID) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneService(svc), nil
}

func (s *Store) ListServicesByDepartment(_ context.Context, departmentID domain.DepartmentID, activeOnly bool) ([]*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Service, 0)
	for _, svc := range s.services {
		if svc.DepartmentID != departmentID {
			continue
		}
		if activeOnly && !svc.IsActive {
			continue
		}
		out = append(out, cloneService(svc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CountDepartments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.departments), nil
}

func (s *Store) CountServices(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.services), nil
}

func cloneDepartment(dept *models.Department) *models.Department {
	cp := *dept
	return &cp
}

func cloneService(svc *models.Service) *models.Service {
	cp := *svc
	cp.FormSchema = append([]models.FormField(nil), svc.FormSchema...)
	return &cp
}
