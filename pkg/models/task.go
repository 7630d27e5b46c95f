package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been submitted but not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusPaused indicates the task has been temporarily suspended.
	TaskStatusPaused TaskStatus = "paused"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusPaused,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition. The only non-forward edges are
// in_progress <-> paused and cancellation from any non-terminal state.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusCancelled || next == TaskStatusFailed
	case TaskStatusInProgress:
		return next == TaskStatusPaused || next == TaskStatusCompleted ||
			next == TaskStatusFailed || next == TaskStatusCancelled
	case TaskStatusPaused:
		return next == TaskStatusInProgress || next == TaskStatusCancelled
	default:
		return false
	}
}

// TaskPriority represents how urgently a task should be scheduled.
type TaskPriority string

const (
	// PriorityLow is for background work with no deadline pressure.
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority for submitted tasks.
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh schedules the task's agents ahead of others.
	PriorityHigh TaskPriority = "high"
	// PriorityUrgent is the highest priority level.
	PriorityUrgent TaskPriority = "urgent"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Task represents one user-submitted unit of work tracked end to end.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// SessionID groups tasks submitted within one session, if any.
	SessionID string `json:"session_id,omitempty"`
	// Input is the raw user request text.
	Input string `json:"input"`
	// Priority controls scheduling order for this task's agents.
	Priority TaskPriority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the final synthesized output, opaque to the core.
	Result map[string]any `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task last changed state.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the task reached a terminal status, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LogLevel is the severity of a task log entry.
type LogLevel string

const (
	// LogLevelInfo marks routine lifecycle events.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarning marks recoverable problems.
	LogLevelWarning LogLevel = "warning"
	// LogLevelError marks failures.
	LogLevelError LogLevel = "error"
)

// TaskLog is one append-only log entry attached to a task.
type TaskLog struct {
	// ID is the unique identifier for this log entry.
	ID int64 `json:"id"`
	// TaskID is the task this entry belongs to.
	TaskID string `json:"task_id"`
	// Level is the severity of the entry.
	Level LogLevel `json:"level"`
	// Message is the human-readable log text.
	Message string `json:"message"`
	// Metadata carries optional structured detail.
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}
