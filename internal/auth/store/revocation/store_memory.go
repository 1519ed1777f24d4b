package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is an in-memory token revocation list for tests and
// single-instance development runs.
type MemoryTRL struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryTRL() *MemoryTRL {
	return &MemoryTRL{entries: make(map[string]time.Time)}
}

func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (t *MemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiry, ok := t.entries[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		t.mu.Lock()
		delete(t.entries, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
