package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/euna/pkg/models"
)

// Offline implements Service without any external calls. It applies simple
// keyword heuristics for analysis and otherwise mirrors the deterministic
// fallback payloads, so the engine stays usable with no API key configured.
type Offline struct{}

// NewOffline creates an offline reasoning service.
func NewOffline() *Offline {
	return &Offline{}
}

// AnalyzeTask suggests a default agent based on keywords in the input.
func (o *Offline) AnalyzeTask(ctx context.Context, input, taskContext string) (*TaskAnalysis, error) {
	lower := strings.ToLower(input)

	agent := SuggestedAgent{
		Name:         "GeneralAgent",
		Type:         models.AgentTypeDefault,
		Role:         "Handle general task processing",
		Capabilities: []string{"reasoning", "analysis"},
		Priority:     models.PriorityHigh,
	}
	tools := []string{"web_search"}

	switch {
	case strings.Contains(lower, "summar"):
		agent = SuggestedAgent{
			Name:         "SummarizerAgent",
			Type:         models.AgentTypeDefault,
			Role:         "Summarize the provided text and extract key points",
			Capabilities: []string{"summarization", "text_analysis"},
			Priority:     models.PriorityMedium,
		}
		tools = []string{"text_summarizer"}
	case strings.Contains(lower, "search") || strings.Contains(lower, "find") || strings.Contains(lower, "look up"):
		agent = SuggestedAgent{
			Name:         "SearchAgent",
			Type:         models.AgentTypeDefault,
			Role:         "Search for relevant information",
			Capabilities: []string{"web_search", "information_gathering"},
			Priority:     models.PriorityMedium,
		}
		tools = []string{"web_search"}
	case strings.Contains(lower, "code") || strings.Contains(lower, "debug") || strings.Contains(lower, "implement"):
		agent = SuggestedAgent{
			Name:         "CodingAgent",
			Type:         models.AgentTypeDefault,
			Role:         "Generate, review, and debug code",
			Capabilities: []string{"code_generation", "code_review"},
			Priority:     models.PriorityMedium,
		}
		tools = []string{"file_reader", "json_parser"}
	case strings.Contains(lower, "schedule") || strings.Contains(lower, "remind") || strings.Contains(lower, "calendar"):
		agent = SuggestedAgent{
			Name:         "SchedulerAgent",
			Type:         models.AgentTypeDefault,
			Role:         "Plan and schedule tasks over time",
			Capabilities: []string{"scheduling", "time_management"},
			Priority:     models.PriorityMedium,
		}
		tools = []string{"datetime_tool"}
	}

	return &TaskAnalysis{
		Complexity:        "moderate",
		SuggestedAgents:   []SuggestedAgent{agent},
		RequiredTools:     tools,
		EstimatedDuration: "2-5 minutes",
	}, nil
}

// PlanAgentAction plans to invoke every available tool at fixed confidence.
func (o *Offline) PlanAgentAction(ctx context.Context, prompt, input, taskContext string, availableTools []string) (*ActionPlan, error) {
	actions := make([]string, 0, len(availableTools))
	for _, tool := range availableTools {
		actions = append(actions, "invoke "+tool)
	}
	if len(actions) == 0 {
		actions = []string{"analyze input directly"}
	}

	reasoning := fmt.Sprintf("Processing the request %q with the agent's available tools.", truncate(input, 120))

	return &ActionPlan{
		Reasoning:       reasoning,
		PlannedActions:  actions,
		ToolsNeeded:     availableTools,
		ConfidenceLevel: 0.7,
		NextSteps:       []string{"review results"},
	}, nil
}

// GenerateDynamicAgent expands the suggestion using the fallback definition.
func (o *Offline) GenerateDynamicAgent(ctx context.Context, spec SuggestedAgent, taskContext string) (*AgentDefinition, error) {
	return FallbackAgentDefinition(spec), nil
}

// Synthesize concatenates the per-agent summaries into one answer.
func (o *Offline) Synthesize(ctx context.Context, agentResults []map[string]any, originalInput string) (*Synthesis, error) {
	var parts []string
	var insights []string
	succeeded := 0

	for _, result := range agentResults {
		if output, ok := result["output"].(string); ok && output != "" {
			parts = append(parts, output)
		}
		if name, ok := result["agent_name"].(string); ok {
			insights = append(insights, name+" contributed to this result")
		}
		if success, ok := result["success"].(bool); ok && success {
			succeeded++
		}
	}

	answer := strings.Join(parts, "\n\n")
	if answer == "" {
		answer = FallbackSynthesis(agentResults).FinalAnswer
	}

	confidence := 0.5
	if len(agentResults) > 0 {
		confidence = float64(succeeded) / float64(len(agentResults))
	}

	return &Synthesis{
		FinalAnswer:     answer,
		KeyInsights:     insights,
		ConfidenceScore: confidence,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
