// Package memory provides an in-memory user store for tests and
// development. Production deployments use the postgres store.
package memory

import (
	"context"
	"strings"
	"sync"

	"nexus/internal/auth/models"
	"nexus/pkg/domain"
	"nexus/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]*models.User
	byEmail map[string]domain.UserID
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[domain.UserID]*models.User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *Store) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return sentinel.ErrConflict
	}
	cp := *user
	s.byID[user.ID] = &cp
	s.byEmail[email] = user.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
