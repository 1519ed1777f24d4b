// Package memory provides an in-memory request ledger for tests and
// development.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"nexus/internal/request/models"
	"nexus/pkg/domain"
	"nexus/pkg/platform/sentinel"
)

type Store struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*models.ServiceRequest
}

func NewStore() *Store {
	return &Store{requests: make(map[domain.RequestID]*models.ServiceRequest)}
}

func (s *Store) Create(_ context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *Store) Update(_ context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *Store) Get(_ context.Context, id domain.RequestID) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(req), nil
}

func (s *Store) ListByCitizen(_ context.Context, citizenID domain.UserID) ([]*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ServiceRequest
	for _, req := range s.requests {
		if req.CitizenID == citizenID {
			out = append(out, clone(req))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListByDepartment(_ context.Context, departmentID domain.DepartmentID, status *models.Status) ([]*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ServiceRequest
	for _, req := range s.requests {
		if req.DepartmentID != departmentID {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, clone(req))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) CountByDepartmentStatus(_ context.Context, departmentID domain.DepartmentID) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Status]int)
	for _, req := range s.requests {
		if req.DepartmentID == departmentID {
			counts[req.Status]++
		}
	}
	return counts, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Status]int)
	for _, req := range s.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func sortNewestFirst(reqs []*models.ServiceRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

func clone(req *models.ServiceRequest) *models.ServiceRequest {
	cp := *req
	cp.Payload = maps.Clone(req.Payload)
	cp.ResponseData = maps.Clone(req.ResponseData)
	if req.ProcessedBy != nil {
		by := *req.ProcessedBy
		cp.ProcessedBy = &by
	}
	if req.ProcessedAt != nil {
		at := *req.ProcessedAt
		cp.ProcessedAt = &at
	}
	return &cp
}
