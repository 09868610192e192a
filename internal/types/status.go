package types

import (
	"encoding/json"
	"fmt"
)

// TaskStatus represents the lifecycle state of a background pipeline task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusProgress  TaskStatus = "progress"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusRetrying  TaskStatus = "retrying"
)

// String returns the string representation of TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid checks if the TaskStatus is a valid value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusStarted, TaskStatusProgress,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled,
		TaskStatusRetrying:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is final. A task in a terminal
// status is immutable and publishes no further updates.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the task is still occupying a worker or queue slot.
func (s TaskStatus) IsActive() bool {
	switch s {
	case TaskStatusPending, TaskStatusStarted, TaskStatusProgress, TaskStatusRetrying:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status := TaskStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid task status: %s", str)
	}

	*s = status
	return nil
}

// TaskKind distinguishes the two pipeline workflows a task can run.
type TaskKind string

const (
	TaskKindGeneration TaskKind = "generation"
	TaskKindReplan     TaskKind = "replan"
)

// String returns the string representation of TaskKind.
func (k TaskKind) String() string {
	return string(k)
}

// IsValid checks if the TaskKind is a valid value.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindGeneration, TaskKindReplan:
		return true
	default:
		return false
	}
}
