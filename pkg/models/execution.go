package models

import "time"

// ToolExecutionStatus represents the state of one tool invocation.
type ToolExecutionStatus string

const (
	// ToolExecutionRunning indicates the invocation is in flight.
	ToolExecutionRunning ToolExecutionStatus = "running"
	// ToolExecutionCompleted indicates the capability returned success.
	ToolExecutionCompleted ToolExecutionStatus = "completed"
	// ToolExecutionFailed indicates the capability returned a failure.
	ToolExecutionFailed ToolExecutionStatus = "failed"
	// ToolExecutionError indicates the invocation itself errored.
	ToolExecutionError ToolExecutionStatus = "error"
)

// Valid returns true if the status is a known value.
func (s ToolExecutionStatus) Valid() bool {
	switch s {
	case ToolExecutionRunning, ToolExecutionCompleted, ToolExecutionFailed, ToolExecutionError:
		return true
	default:
		return false
	}
}

// ToolExecutionRecord tracks one capability invocation. Records move from
// the executor's active set to a bounded history list when they finish;
// history feeds statistics only and may be truncated.
type ToolExecutionRecord struct {
	// ID is the time-ordered unique identifier for this invocation.
	ID string `json:"id"`
	// AgentID is the agent on whose behalf the tool ran.
	AgentID string `json:"agent_id"`
	// ToolName is the registered name of the invoked capability.
	ToolName string `json:"tool_name"`
	// Params are the resolved parameters passed to the capability.
	Params map[string]any `json:"params,omitempty"`
	// Status is the current state of the invocation.
	Status ToolExecutionStatus `json:"status"`
	// Result is the capability output on success.
	Result any `json:"result,omitempty"`
	// Error contains the error message on failure.
	Error string `json:"error,omitempty"`
	// StartedAt is when the invocation began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the invocation ended, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Duration is the wall-clock time the invocation took.
	Duration time.Duration `json:"duration,omitempty"`
}
