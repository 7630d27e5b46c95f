package reasoning

import (
	"fmt"

	"github.com/ShayCichocki/euna/pkg/models"
)

// Deterministic fallbacks used at call sites when the reasoning service
// fails. Each returns a conservative payload so orchestration can proceed.

// FallbackAnalysis returns a single general-purpose agent suggestion.
func FallbackAnalysis() *TaskAnalysis {
	return &TaskAnalysis{
		Complexity: "moderate",
		SuggestedAgents: []SuggestedAgent{
			{
				Name:         "GeneralAgent",
				Type:         models.AgentTypeDefault,
				Role:         "Handle general task processing",
				Capabilities: []string{"reasoning", "analysis"},
				Priority:     models.PriorityHigh,
			},
		},
		RequiredTools:     []string{"web_search"},
		EstimatedDuration: "2-5 minutes",
	}
}

// FallbackPlan returns a minimal low-confidence action plan.
func FallbackPlan() *ActionPlan {
	return &ActionPlan{
		Reasoning:       "Unable to process request due to error",
		PlannedActions:  []string{"report_error"},
		ToolsNeeded:     nil,
		ConfidenceLevel: 0.2,
		NextSteps:       []string{"retry_or_escalate"},
	}
}

// FallbackAgentDefinition builds a definition directly from the suggestion.
func FallbackAgentDefinition(spec SuggestedAgent) *AgentDefinition {
	name := spec.Name
	if name == "" {
		name = "DynamicAgent"
	}
	role := spec.Role
	if role == "" {
		role = "General purpose agent"
	}
	capabilities := spec.Capabilities
	if len(capabilities) == 0 {
		capabilities = []string{"reasoning"}
	}

	return &AgentDefinition{
		Name:           name,
		Role:           role,
		Capabilities:   capabilities,
		PromptTemplate: fmt.Sprintf("You are a %s agent. %s", name, role),
		PreferredTools: []string{"web_search", "calculator"},
	}
}

// FallbackSynthesis returns a generic combined answer at middling confidence.
func FallbackSynthesis(agentResults []map[string]any) *Synthesis {
	return &Synthesis{
		FinalAnswer:     fmt.Sprintf("%d agent(s) processed your request. Please check individual agent results for details.", len(agentResults)),
		KeyInsights:     []string{"Processing completed by multiple agents"},
		ConfidenceScore: 0.5,
	}
}
