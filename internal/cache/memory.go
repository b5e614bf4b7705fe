package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

type memoryEntry struct {
	user       *models.User
	generation uint64
	expires    time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	ttl        time.Duration
	now        func() time.Time
	generation atomic.Uint64

	mu      sync.RWMutex
	entries map[uint64]memoryEntry
}

// NewMemory returns an in-process cache. A zero ttl uses the default of five minutes.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uint64]memoryEntry),
	}
}

// Generation implements Cache.
func (m *Memory) Generation(context.Context) (uint64, bool) {
	return m.generation.Load(), true
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, id uint64) (*models.User, bool) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()

	hit := ok && e.generation == m.generation.Load() && m.now().Before(e.expires)
	observe(BackendMemory, hit)

	if !hit {
		return nil, false
	}

	return e.user, true
}

// Set implements Cache. Entries of an outdated generation are dropped.
func (m *Memory) Set(_ context.Context, generation uint64, u *models.User) {
	if u == nil || generation != m.generation.Load() {
		return
	}

	m.mu.Lock()
	m.entries[u.ID] = memoryEntry{
		user:       u,
		generation: generation,
		expires:    m.now().Add(m.ttl),
	}
	m.mu.Unlock()
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(context.Context) {
	m.generation.Add(1)

	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
}
