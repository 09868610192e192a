package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

type memoryPlan struct {
	mu             sync.Mutex
	currentVersion int
	versions       map[int]*itinerary.Snapshot
	history        []itinerary.VersionHistoryEntry
	replanTask     types.ID
}

// MemoryStore is an in-process VersionStore for tests and single-node use.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[types.ID]*memoryPlan
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[types.ID]*memoryPlan)}
}

func (m *MemoryStore) plan(planID types.ID) (*memoryPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[planID]
	if !ok {
		return nil, types.NewError(types.PLAN_NOT_FOUND, fmt.Sprintf("plan %s not found", planID))
	}
	return p, nil
}

// Create stores version 1 of a new plan.
func (m *MemoryStore) Create(ctx context.Context, snap *itinerary.Snapshot) error {
	if snap.ID.IsZero() {
		snap.ID = types.NewID()
	}
	snap.Version = 1

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plans[snap.ID]; exists {
		return types.NewError(types.STORE_QUERY_FAILED, fmt.Sprintf("plan %s already exists", snap.ID))
	}
	m.plans[snap.ID] = &memoryPlan{
		currentVersion: 1,
		versions:       map[int]*itinerary.Snapshot{1: snap.Clone()},
	}
	return nil
}

// Get returns the current version.
func (m *MemoryStore) Get(ctx context.Context, planID types.ID) (*itinerary.Snapshot, error) {
	p, err := m.plan(planID)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.versions[p.currentVersion].Clone(), nil
}

// GetVersion returns one retained version.
func (m *MemoryStore) GetVersion(ctx context.Context, planID types.ID, version int) (*itinerary.Snapshot, error) {
	p, err := m.plan(planID)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	snap, ok := p.versions[version]
	if !ok {
		return nil, types.NewError(types.STORE_NOT_FOUND, fmt.Sprintf("plan %s has no version %d", planID, version))
	}
	return snap.Clone(), nil
}

// SaveReplan commits the next version under the plan's lock.
func (m *MemoryStore) SaveReplan(ctx context.Context, planID types.ID, expectedVersion int, snap *itinerary.Snapshot, summary itinerary.ChangeSummary) (int, error) {
	p, err := m.plan(planID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentVersion != expectedVersion {
		return 0, types.NewError(types.STORE_VERSION_CONFLICT,
			fmt.Sprintf("plan %s is at version %d, expected %d", planID, p.currentVersion, expectedVersion))
	}

	newVersion := expectedVersion + 1
	stored := snap.Clone()
	stored.ID = planID
	stored.Version = newVersion
	p.versions[newVersion] = stored
	p.currentVersion = newVersion

	p.history = append(p.history, itinerary.VersionHistoryEntry{
		Version:     expectedVersion,
		TriggerKind: summary.TriggerKind,
		Summary:     summary.AlertMessage,
		Changes:     append([]itinerary.Change(nil), summary.Changes...),
		CreatedAt:   time.Now(),
	})
	if len(p.history) > HistoryLimit {
		p.history = p.history[len(p.history)-HistoryLimit:]
	}

	// Prune versions no longer referenced by history or current.
	retained := map[int]struct{}{newVersion: {}}
	for _, h := range p.history {
		retained[h.Version] = struct{}{}
	}
	for v := range p.versions {
		if _, keep := retained[v]; !keep {
			delete(p.versions, v)
		}
	}

	p.replanTask = types.ID("")
	return newVersion, nil
}

// History lists retained entries, newest first.
func (m *MemoryStore) History(ctx context.Context, planID types.ID) ([]itinerary.VersionHistoryEntry, error) {
	p, err := m.plan(planID)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]itinerary.VersionHistoryEntry(nil), p.history...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

// SetReplanTask marks an in-flight replan.
func (m *MemoryStore) SetReplanTask(ctx context.Context, planID, taskID types.ID) error {
	p, err := m.plan(planID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.replanTask.IsZero() && p.replanTask != taskID {
		return types.NewError(types.STORE_VERSION_CONFLICT,
			fmt.Sprintf("plan %s already has replan task %s in flight", planID, p.replanTask))
	}
	p.replanTask = taskID
	return nil
}

// ReplanTask returns the in-flight replan task ID.
func (m *MemoryStore) ReplanTask(ctx context.Context, planID types.ID) (types.ID, error) {
	p, err := m.plan(planID)
	if err != nil {
		return types.ID(""), err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replanTask, nil
}

// ClearReplanTask removes a matching marker.
func (m *MemoryStore) ClearReplanTask(ctx context.Context, planID, taskID types.ID) error {
	p, err := m.plan(planID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replanTask == taskID {
		p.replanTask = types.ID("")
	}
	return nil
}

// Delete removes a plan entirely.
func (m *MemoryStore) Delete(ctx context.Context, planID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plans, planID)
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
