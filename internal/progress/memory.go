package progress

import (
	"context"
	"sync"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

type memoryEntry struct {
	update    Update
	expiresAt time.Time
}

// MemorySubstrate keeps the latest update per task in process memory with
// TTL expiry. Suitable for single-process deployments and tests.
type MemorySubstrate struct {
	mu      sync.RWMutex
	entries map[types.ID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySubstrate creates an in-memory substrate with the standard TTL.
func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{
		entries: make(map[types.ID]memoryEntry),
		ttl:     TTL,
		now:     time.Now,
	}
}

// Store saves the update, refreshing its TTL.
func (m *MemorySubstrate) Store(ctx context.Context, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[u.TaskID] = memoryEntry{
		update:    u,
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

// Load returns the stored update if present and unexpired.
func (m *MemorySubstrate) Load(ctx context.Context, taskID types.ID) (Update, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[taskID]
	m.mu.RUnlock()

	if !ok {
		return Update{}, false, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, taskID)
		m.mu.Unlock()
		return Update{}, false, nil
	}
	return entry.update, true, nil
}
