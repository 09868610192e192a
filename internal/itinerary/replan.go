package itinerary

import (
	"fmt"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// TriggerKind is the category of event that prompted a replan.
type TriggerKind string

const (
	TriggerWeather     TriggerKind = "weather"
	TriggerTraffic     TriggerKind = "traffic"
	TriggerCrowd       TriggerKind = "crowd"
	TriggerUserRequest TriggerKind = "user_request"
)

// IsValid reports whether the trigger kind is one of the known values.
func (t TriggerKind) IsValid() bool {
	switch t {
	case TriggerWeather, TriggerTraffic, TriggerCrowd, TriggerUserRequest:
		return true
	}
	return false
}

// ImpactLevel grades how badly a trigger affects an activity.
type ImpactLevel string

const (
	ImpactNone     ImpactLevel = "none"
	ImpactMinor    ImpactLevel = "minor"
	ImpactModerate ImpactLevel = "moderate"
	ImpactMajor    ImpactLevel = "major"
)

// ReplanTrigger describes the disruption a replan reacts to.
type ReplanTrigger struct {
	Kind        TriggerKind `json:"kind"`
	Description string      `json:"description,omitempty"`
	// Day restricts the replan to one day when > 0. Zero means the engine
	// evaluates today through today+2 within the trip window.
	Day int `json:"day,omitempty"`
	// DelayMinutes applies to traffic triggers.
	DelayMinutes int `json:"delay_minutes,omitempty"`
	// Preference carries the user's wish text for user_request triggers.
	Preference string `json:"preference,omitempty"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// Validate rejects triggers the replan workflow cannot act on.
func (t ReplanTrigger) Validate() error {
	if !t.Kind.IsValid() {
		return types.NewError(types.PLAN_VALIDATION_FAILED, fmt.Sprintf("unknown replan trigger kind %q", t.Kind))
	}
	if t.Kind == TriggerUserRequest && t.Preference == "" && t.Description == "" {
		return types.NewError(types.PLAN_VALIDATION_FAILED, "user_request trigger requires a preference or description")
	}
	return nil
}

// ImpactedSegment is one activity the impact analysis flagged.
type ImpactedSegment struct {
	DayNumber            int         `json:"day_number"`
	ActivityIndex        int         `json:"activity_index"`
	ActivityID           string      `json:"activity_id"`
	ActivityTitle        string      `json:"activity_title"`
	Impact               ImpactLevel `json:"impact"`
	Reason               string      `json:"reason"`
	RequiresSubstitution bool        `json:"requires_substitution"`
}

// SubstitutionProposal is a replacement activity for an impacted segment.
type SubstitutionProposal struct {
	DayNumber     int      `json:"day_number"`
	ActivityIndex int      `json:"activity_index"`
	Replacement   Activity `json:"replacement"`
	Reason        string   `json:"reason"`
	IsHiddenGem   bool     `json:"is_hidden_gem,omitempty"`
}

// ChangeKind labels one applied replan mutation.
type ChangeKind string

const (
	ChangeSubstituted   ChangeKind = "substituted"
	ChangeRescheduled   ChangeKind = "rescheduled"
	ChangeTransitUpdate ChangeKind = "transit_updated"
	ChangePitStopAdded  ChangeKind = "pit_stop_added"
)

// Change records one mutation made to the plan during a replan.
type Change struct {
	Kind          ChangeKind `json:"kind"`
	DayNumber     int        `json:"day_number"`
	ActivityIndex int        `json:"activity_index,omitempty"`
	Before        string     `json:"before,omitempty"`
	After         string     `json:"after,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// ChangeSummary is the user-facing digest of a completed replan.
type ChangeSummary struct {
	TriggerKind   TriggerKind `json:"trigger_kind"`
	IsCritical    bool        `json:"is_critical"`
	Changes       []Change    `json:"changes"`
	AlertMessage  string      `json:"alert_message"`
	AffectedDays  []int       `json:"affected_days,omitempty"`
	NewVersion    int         `json:"new_version"`
	CompletedAt   time.Time   `json:"completed_at"`
}

// VersionHistoryEntry is one row of a plan's retained version history.
type VersionHistoryEntry struct {
	Version     int         `json:"version"`
	TriggerKind TriggerKind `json:"trigger_kind,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Changes     []Change    `json:"changes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
