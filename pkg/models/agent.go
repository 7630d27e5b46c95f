package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusActive indicates the agent is working or ready to work.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusCompleted indicates the agent finished its work.
	AgentStatusCompleted AgentStatus = "completed"
	// AgentStatusFailed indicates the agent encountered an error.
	AgentStatusFailed AgentStatus = "failed"
	// AgentStatusCancelled indicates the agent was cancelled with its task.
	AgentStatusCancelled AgentStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusCompleted, AgentStatusFailed, AgentStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true once the agent can no longer change status.
func (s AgentStatus) Terminal() bool {
	switch s {
	case AgentStatusCompleted, AgentStatusFailed, AgentStatusCancelled:
		return true
	default:
		return false
	}
}

// AgentType distinguishes template-based agents from reasoning-generated ones.
type AgentType string

const (
	// AgentTypeDefault is an agent built from a built-in template.
	AgentTypeDefault AgentType = "default"
	// AgentTypeDynamic is an agent whose definition came from the reasoning service.
	AgentTypeDynamic AgentType = "dynamic"
)

// Valid returns true if the type is a known value.
func (t AgentType) Valid() bool {
	return t == AgentTypeDefault || t == AgentTypeDynamic
}

// Agent represents a specialized worker created to address part of a task.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// TaskID is the ID of the task this agent belongs to.
	TaskID string `json:"task_id"`
	// Name is the short display name, e.g. "SummarizerAgent".
	Name string `json:"name"`
	// Type is default (templated) or dynamic (reasoning-generated).
	Type AgentType `json:"type"`
	// Role describes what this agent is responsible for.
	Role string `json:"role,omitempty"`
	// Capabilities is the ordered set of capability tags, unique within the agent.
	Capabilities []string `json:"capabilities"`
	// Priority is inherited scheduling priority for this agent.
	Priority TaskPriority `json:"priority"`
	// PromptTemplate is the reasoning prompt used when planning actions.
	PromptTemplate string `json:"prompt_template,omitempty"`
	// PreferredTools lists the tool names this agent is allowed to invoke.
	PreferredTools []string `json:"preferred_tools,omitempty"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// CreatedAt is when the agent was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the agent reached a terminal status, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExecutionStatus represents the state of one agent execution cycle.
type ExecutionStatus string

const (
	// ExecutionPending indicates the execution has been recorded but not started.
	ExecutionPending ExecutionStatus = "pending"
	// ExecutionRunning indicates the execution is in flight.
	ExecutionRunning ExecutionStatus = "running"
	// ExecutionCompleted indicates the execution finished successfully.
	ExecutionCompleted ExecutionStatus = "completed"
	// ExecutionFailed indicates the execution failed.
	ExecutionFailed ExecutionStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionPending, ExecutionRunning, ExecutionCompleted, ExecutionFailed:
		return true
	default:
		return false
	}
}

// AgentExecution records one reasoning-to-action cycle performed by an agent.
// Entries are append-only and owned by the agent.
type AgentExecution struct {
	// ID is the unique identifier for this execution.
	ID string `json:"id"`
	// AgentID is the agent that performed the execution.
	AgentID string `json:"agent_id"`
	// Action is the name of the action performed, e.g. a tool name.
	Action string `json:"action"`
	// Input is a snapshot of the execution input.
	Input map[string]any `json:"input,omitempty"`
	// Output is a snapshot of the execution output.
	Output map[string]any `json:"output,omitempty"`
	// ToolsUsed lists the tools invoked during the cycle.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// Status is the current state of the execution.
	Status ExecutionStatus `json:"status"`
	// Error contains the error message if the execution failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the execution began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the execution ended, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
