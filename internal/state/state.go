// Package state tracks the last evaluated status per tenant and rule
// so that only status transitions fan out as alerts.
package state

import (
	"sync"

	"threshd/internal/rules"
)

// Store is a minimal interface for evaluation state. Implementations
// must be safe for concurrent use.
type Store interface {
	LastStatus(tenantID, rule string) (rules.Status, bool)
	SetStatus(tenantID, rule string, status rules.Status)
	Close() error
}

type memoryStore struct {
	mu     sync.RWMutex
	status map[string]rules.Status
}

// NewMemoryStore returns an in-process Store. State does not survive
// restarts; a restarted node treats every rule as previously unknown.
func NewMemoryStore() Store {
	return &memoryStore{status: make(map[string]rules.Status)}
}

func key(tenantID, rule string) string {
	return tenantID + "\x00" + rule
}

func (m *memoryStore) LastStatus(tenantID, rule string) (rules.Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.status[key(tenantID, rule)]
	return s, ok
}

func (m *memoryStore) SetStatus(tenantID, rule string, status rules.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[key(tenantID, rule)] = status
}

func (m *memoryStore) Close() error {
	return nil
}
