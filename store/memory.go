package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

type memoryEntry struct {
	sess      *tools.SessionContext
	updatedAt time.Time
}

type inMemory struct {
	mu      sync.RWMutex
	storage map[string]*memoryEntry
	ttl     time.Duration
}

// NewMemoryStore returns a process local store.
// Sessions are shared by pointer, a zero ttl means no expiration.
func NewMemoryStore(ttl time.Duration) SessionStore {
	return &inMemory{
		storage: make(map[string]*memoryEntry),
		ttl:     ttl,
	}
}

func (m *inMemory) Create(_ context.Context, sess *tools.SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.storage[sess.ID]; ok && !m.expired(e, time.Now()) {
		return errors.Wrapf(ErrExists, "session %s", sess.ID)
	}
	m.storage[sess.ID] = &memoryEntry{sess: sess, updatedAt: time.Now()}
	return nil
}

func (m *inMemory) Get(_ context.Context, id string) (*tools.SessionContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.storage[id]
	if !ok || m.expired(e, time.Now()) {
		return nil, errors.Wrapf(ErrNotFound, "session %s", id)
	}
	return e.sess, nil
}

func (m *inMemory) Save(_ context.Context, sess *tools.SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[sess.ID] = &memoryEntry{sess: sess, updatedAt: time.Now()}
	return nil
}

func (m *inMemory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, id)
	return nil
}

func (m *inMemory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	ids := make([]string, 0, len(m.storage))
	for id, e := range m.storage {
		if !m.expired(e, now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *inMemory) Cleanup(_ context.Context, olderThan time.Duration) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-olderThan)
	deleted := uint32(0)
	for id, e := range m.storage {
		if e.updatedAt.Before(cutoff) || m.expired(e, now) {
			delete(m.storage, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *inMemory) expired(e *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.updatedAt) > m.ttl
}
