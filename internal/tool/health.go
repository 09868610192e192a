package tool

import (
	"sync"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// DefaultBypassThreshold is the number of consecutive failures after which
// a tool is bypassed and served from fallback directly.
const DefaultBypassThreshold = 3

// toolHealth tracks one tool's consecutive-failure streak.
type toolHealth struct {
	consecutiveFailures int
	totalCalls          int
	totalFailures       int
	lastFailure         time.Time
	lastSuccess         time.Time
	lastClass           types.ErrorClass
	lastError           string
}

// HealthTracker counts consecutive failures per tool. A tool whose streak
// reaches the threshold is bypassed until a probe call succeeds again.
// Thread-safe.
type HealthTracker struct {
	mu        sync.Mutex
	threshold int
	tools     map[string]*toolHealth
}

// NewHealthTracker creates a tracker with the given bypass threshold.
// A threshold of 0 or less uses DefaultBypassThreshold.
func NewHealthTracker(threshold int) *HealthTracker {
	if threshold <= 0 {
		threshold = DefaultBypassThreshold
	}
	return &HealthTracker{
		threshold: threshold,
		tools:     make(map[string]*toolHealth),
	}
}

func (h *HealthTracker) get(name string) *toolHealth {
	th, ok := h.tools[name]
	if !ok {
		th = &toolHealth{}
		h.tools[name] = th
	}
	return th
}

// RecordSuccess resets the tool's failure streak.
func (h *HealthTracker) RecordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	th := h.get(name)
	th.consecutiveFailures = 0
	th.totalCalls++
	th.lastSuccess = time.Now()
}

// RecordFailure increments the tool's failure streak and remembers the
// classification so bypassed calls can report what is wrong with the tool.
func (h *HealthTracker) RecordFailure(name string, class types.ErrorClass, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	th := h.get(name)
	th.consecutiveFailures++
	th.totalCalls++
	th.totalFailures++
	th.lastFailure = time.Now()
	th.lastClass = class
	th.lastError = message
}

// LastFailure returns the most recent failure's classification and message.
func (h *HealthTracker) LastFailure(name string) (types.ErrorClass, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	th, ok := h.tools[name]
	if !ok {
		return types.ErrClassUnknown, ""
	}
	return th.lastClass, th.lastError
}

// ShouldBypass reports whether the tool's streak has reached the threshold.
func (h *HealthTracker) ShouldBypass(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	th, ok := h.tools[name]
	return ok && th.consecutiveFailures >= h.threshold
}

// ConsecutiveFailures returns the tool's current streak.
func (h *HealthTracker) ConsecutiveFailures(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	th, ok := h.tools[name]
	if !ok {
		return 0
	}
	return th.consecutiveFailures
}

// ToolStats is a point-in-time view of one tool's call history.
type ToolStats struct {
	Name                string    `json:"name"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalCalls          int       `json:"total_calls"`
	TotalFailures       int       `json:"total_failures"`
	Bypassed            bool      `json:"bypassed"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
}

// Stats returns a snapshot for every tracked tool.
func (h *HealthTracker) Stats() []ToolStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ToolStats, 0, len(h.tools))
	for name, th := range h.tools {
		out = append(out, ToolStats{
			Name:                name,
			ConsecutiveFailures: th.consecutiveFailures,
			TotalCalls:          th.totalCalls,
			TotalFailures:       th.totalFailures,
			Bypassed:            th.consecutiveFailures >= h.threshold,
			LastFailure:         th.lastFailure,
			LastSuccess:         th.lastSuccess,
		})
	}
	return out
}
