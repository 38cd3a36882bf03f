// Package storage keeps recent alert envelopes for inspection via the
// HTTP API.
package storage

import (
	"sync"

	"threshd/internal/models"
)

// Store persists alert envelopes and serves recent history.
type Store interface {
	Add(envelope *models.AlertEnvelope)
	Recent(n int) []*models.AlertEnvelope
	Close() error
}

type memoryStore struct {
	mu   sync.RWMutex
	ring []*models.AlertEnvelope
	next int
	full bool
}

// NewMemoryStore returns a bounded in-memory Store holding the most
// recent capacity envelopes.
func NewMemoryStore(capacity int) Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memoryStore{ring: make([]*models.AlertEnvelope, capacity)}
}

func (m *memoryStore) Add(envelope *models.AlertEnvelope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.next] = envelope
	m.next++
	if m.next == len(m.ring) {
		m.next = 0
		m.full = true
	}
}

// Recent returns up to n envelopes, newest first.
func (m *memoryStore) Recent(n int) []*models.AlertEnvelope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.ring)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]*models.AlertEnvelope, 0, n)
	idx := m.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(m.ring) - 1
		}
		out = append(out, m.ring[idx])
	}
	return out
}

func (m *memoryStore) Close() error {
	return nil
}
