// Package store persists versioned plan snapshots. Generation writes
// version 1; each successful replan commits exactly one new version,
// appends to the retained history, and clears the plan's replan task
// marker in the same transaction.
package store

import (
	"context"

	"github.com/smithisrealdev/aigo-engine/internal/itinerary"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// HistoryLimit is how many prior versions a plan retains.
const HistoryLimit = 10

// VersionStore is the persistence contract for plans.
type VersionStore interface {
	// Create stores a brand-new plan as version 1. The snapshot's ID is
	// assigned if zero.
	Create(ctx context.Context, snap *itinerary.Snapshot) error

	// Get returns the current version of a plan.
	Get(ctx context.Context, planID types.ID) (*itinerary.Snapshot, error)

	// GetVersion returns one specific retained version.
	GetVersion(ctx context.Context, planID types.ID, version int) (*itinerary.Snapshot, error)

	// SaveReplan commits a replanned snapshot as expectedVersion+1. It
	// fails with STORE_VERSION_CONFLICT when the stored current version
	// is not expectedVersion, so concurrent replans cannot both win.
	// History beyond HistoryLimit prior versions is pruned and the
	// plan's replan task marker is cleared.
	SaveReplan(ctx context.Context, planID types.ID, expectedVersion int, snap *itinerary.Snapshot, summary itinerary.ChangeSummary) (int, error)

	// History lists the retained version history, newest first.
	History(ctx context.Context, planID types.ID) ([]itinerary.VersionHistoryEntry, error)

	// SetReplanTask marks the plan as having an in-flight replan task.
	// It fails if a different task is already marked.
	SetReplanTask(ctx context.Context, planID, taskID types.ID) error

	// ReplanTask returns the in-flight replan task ID, or the zero ID.
	ReplanTask(ctx context.Context, planID types.ID) (types.ID, error)

	// ClearReplanTask removes the marker if it matches taskID.
	ClearReplanTask(ctx context.Context, planID, taskID types.ID) error

	// Delete removes a plan and all its versions.
	Delete(ctx context.Context, planID types.ID) error

	// Close releases the store's resources.
	Close() error
}
