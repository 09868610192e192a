// Package progress tracks and broadcasts task progress updates. Updates are
// written to a substrate (in-memory or Redis) with a TTL and fanned out to
// subscribers over buffered channels with non-blocking sends, so a slow
// consumer never stalls the worker publishing progress.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// TTL is how long a task's latest progress record stays readable after its
// last update.
const TTL = time.Hour

// FailedProgress is the sentinel progress value published when a task fails.
const FailedProgress = -1

// Update is one progress record for a task.
type Update struct {
	TaskID   types.ID         `json:"task_id"`
	PlanID   types.ID         `json:"plan_id,omitempty"`
	Kind     types.TaskKind   `json:"kind"`
	Status   types.TaskStatus `json:"status"`
	Progress int              `json:"progress"`
	Stage    string           `json:"stage,omitempty"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`

	// ErrorClass, CanRetry, and RetryAfter are set on failed and retrying
	// updates. RetryAfter is the suggested wait in seconds.
	ErrorClass types.ErrorClass `json:"error_class,omitempty"`
	CanRetry   bool             `json:"can_retry,omitempty"`
	RetryAfter int              `json:"retry_after,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether this update ends the task's stream.
func (u Update) Terminal() bool {
	return u.Status.IsTerminal()
}

// Substrate persists the latest update per task with a TTL.
type Substrate interface {
	Store(ctx context.Context, u Update) error
	Load(ctx context.Context, taskID types.ID) (Update, bool, error)
}

// Broadcaster is an optional substrate capability for cross-process
// subscriptions. Substrates without it use the tracker's local fan-out.
type Broadcaster interface {
	Channel(ctx context.Context, taskID types.ID) (<-chan Update, func(), error)
}

// MetricsRecorder receives progress events. Implementations must not block.
type MetricsRecorder interface {
	RecordProgressUpdate(kind types.TaskKind, status types.TaskStatus)
	RecordSubscriberDropped()
}

const defaultBufferSize = 16

type subscriber struct {
	ch     chan Update
	taskID types.ID
	once   sync.Once
}

func (s *subscriber) shutdown() { s.once.Do(func() { close(s.ch) }) }

// Tracker is the progress hub. Thread-safe.
type Tracker struct {
	substrate Substrate
	metrics   MetricsRecorder

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMetrics sets the metrics sink.
func WithMetrics(m MetricsRecorder) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker creates a tracker over the given substrate.
func NewTracker(substrate Substrate, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		substrate: substrate,
		subs:      make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Publish stores the update and fans it out to matching subscribers.
// Progress for a task never decreases while non-terminal, and nothing is
// published after a terminal update.
func (t *Tracker) Publish(ctx context.Context, u Update) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now()
	}

	if prev, ok, err := t.substrate.Load(ctx, u.TaskID); err == nil && ok {
		if prev.Terminal() {
			return nil
		}
		if !u.Terminal() && u.Progress < prev.Progress {
			u.Progress = prev.Progress
		}
	}

	if err := t.substrate.Store(ctx, u); err != nil {
		return err
	}

	if t.metrics != nil {
		t.metrics.RecordProgressUpdate(u.Kind, u.Status)
	}

	if u.Terminal() {
		// A terminal update ends the stream, so the channel closes after
		// the send, matching the broadcast substrate's behavior.
		t.mu.Lock()
		for sub := range t.subs {
			if sub.taskID != u.TaskID {
				continue
			}
			select {
			case sub.ch <- u:
			default:
				if t.metrics != nil {
					t.metrics.RecordSubscriberDropped()
				}
			}
			delete(t.subs, sub)
			sub.shutdown()
		}
		t.mu.Unlock()
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for sub := range t.subs {
		if sub.taskID != u.TaskID {
			continue
		}
		select {
		case sub.ch <- u:
		default:
			if t.metrics != nil {
				t.metrics.RecordSubscriberDropped()
			}
		}
	}
	return nil
}

// Fail publishes a terminal failure update with the sentinel progress value.
// The classification rides in Error and ErrorClass, the class's user-facing
// text in Message, and the class's retry policy in CanRetry and RetryAfter.
func (t *Tracker) Fail(ctx context.Context, u Update, class types.ErrorClass) error {
	u.Status = types.TaskStatusFailed
	u.Progress = FailedProgress
	u.ErrorClass = class
	if u.Error == "" {
		u.Error = string(class)
	}
	if u.Message == "" {
		u.Message = class.UserMessage()
	}
	u.CanRetry = class.Retryable()
	u.RetryAfter = int(class.RetryDelay() / time.Second)
	return t.Publish(ctx, u)
}

// Get returns the latest stored update for a task.
func (t *Tracker) Get(ctx context.Context, taskID types.ID) (Update, error) {
	u, ok, err := t.substrate.Load(ctx, taskID)
	if err != nil {
		return Update{}, err
	}
	if !ok {
		return Update{}, types.NewError(types.STORE_NOT_FOUND, "no progress recorded for task "+taskID.String())
	}
	return u, nil
}

// Subscribe returns a channel of updates for one task plus a cancel func.
// If the substrate broadcasts natively (Redis), the subscription rides it;
// otherwise it uses the tracker's local fan-out. The channel closes after
// a terminal update. The caller must still invoke the cancel function.
func (t *Tracker) Subscribe(ctx context.Context, taskID types.ID) (<-chan Update, func(), error) {
	if b, ok := t.substrate.(Broadcaster); ok {
		return b.Channel(ctx, taskID)
	}

	sub := &subscriber{
		ch:     make(chan Update, defaultBufferSize),
		taskID: taskID,
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
		sub.shutdown()
	}
	return sub.ch, cancel, nil
}
