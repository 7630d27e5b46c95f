// Package reasoning provides the planning collaborator that turns
// natural-language input into structured task analyses, per-agent action
// plans, dynamic agent definitions, and final syntheses.
package reasoning

import (
	"context"

	"github.com/ShayCichocki/euna/pkg/models"
)

// SuggestedAgent is one agent recommendation inside a task analysis.
type SuggestedAgent struct {
	// Name is the agent display name, e.g. "SummarizerAgent".
	Name string `json:"name"`
	// Type is default (templated) or dynamic (generated definition).
	Type models.AgentType `json:"type"`
	// Role describes what the agent should do.
	Role string `json:"role"`
	// Capabilities lists the capability tags the agent needs.
	Capabilities []string `json:"capabilities"`
	// Priority controls scheduling order relative to sibling agents.
	Priority models.TaskPriority `json:"priority"`
}

// TaskAnalysis is the structured result of analyzing a submitted task.
type TaskAnalysis struct {
	// Complexity is a coarse estimate: "low", "medium", or "high".
	Complexity string `json:"complexity"`
	// SuggestedAgents lists the agents recommended for the task.
	SuggestedAgents []SuggestedAgent `json:"suggested_agents"`
	// RequiredTools lists tool names the task will likely need.
	RequiredTools []string `json:"required_tools"`
	// EstimatedDuration is a human-readable duration estimate.
	EstimatedDuration string `json:"estimated_duration"`
}

// ActionPlan is the structured result of planning one agent's actions.
type ActionPlan struct {
	// Reasoning explains the plan in prose.
	Reasoning string `json:"reasoning"`
	// PlannedActions lists the concrete actions to take, in order.
	PlannedActions []string `json:"planned_actions"`
	// ToolsNeeded lists the tools the plan calls for.
	ToolsNeeded []string `json:"tools_needed"`
	// ConfidenceLevel is the plan confidence in [0,1].
	ConfidenceLevel float64 `json:"confidence_level"`
	// NextSteps suggests follow-up actions after execution.
	NextSteps []string `json:"next_steps"`
}

// AgentDefinition fully specifies a dynamic agent.
type AgentDefinition struct {
	// Name is the agent display name.
	Name string `json:"name"`
	// Role describes what the agent is responsible for.
	Role string `json:"role"`
	// Capabilities lists the agent's capability tags.
	Capabilities []string `json:"capabilities"`
	// PromptTemplate is the reasoning prompt the agent plans with.
	PromptTemplate string `json:"prompt_template"`
	// PreferredTools lists the tools the agent may invoke.
	PreferredTools []string `json:"preferred_tools"`
}

// Synthesis is the final combined answer over all agent results.
type Synthesis struct {
	// FinalAnswer is the combined human-readable answer.
	FinalAnswer string `json:"final_answer"`
	// KeyInsights lists notable findings from the agent results.
	KeyInsights []string `json:"key_insights"`
	// ConfidenceScore is the overall confidence in [0,1].
	ConfidenceScore float64 `json:"confidence_score"`
}

// Service is the reasoning collaborator contract. Any call may fail; callers
// substitute the deterministic fallbacks in this package rather than abort.
type Service interface {
	// AnalyzeTask turns raw task input and memory context into an analysis.
	AnalyzeTask(ctx context.Context, input, taskContext string) (*TaskAnalysis, error)
	// PlanAgentAction produces an action plan for one agent.
	PlanAgentAction(ctx context.Context, prompt, input, taskContext string, availableTools []string) (*ActionPlan, error)
	// GenerateDynamicAgent expands an agent suggestion into a full definition.
	GenerateDynamicAgent(ctx context.Context, spec SuggestedAgent, taskContext string) (*AgentDefinition, error)
	// Synthesize combines all agent results into a final answer.
	Synthesize(ctx context.Context, agentResults []map[string]any, originalInput string) (*Synthesis, error)
}
