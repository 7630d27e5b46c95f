package reasoning

import (
	"context"
	"testing"

	"github.com/ShayCichocki/euna/pkg/models"
)

func TestOffline_AnalyzeTask_Summarize(t *testing.T) {
	svc := NewOffline()

	analysis, err := svc.AnalyzeTask(context.Background(), "Summarize this text", "")
	if err != nil {
		t.Fatalf("AnalyzeTask failed: %v", err)
	}
	if len(analysis.SuggestedAgents) != 1 {
		t.Fatalf("suggested agents = %d, want 1", len(analysis.SuggestedAgents))
	}
	agent := analysis.SuggestedAgents[0]
	if agent.Name != "SummarizerAgent" {
		t.Errorf("agent name = %q, want SummarizerAgent", agent.Name)
	}
	if agent.Type != models.AgentTypeDefault {
		t.Errorf("agent type = %q, want default", agent.Type)
	}
}

func TestOffline_AnalyzeTask_Generic(t *testing.T) {
	svc := NewOffline()

	analysis, err := svc.AnalyzeTask(context.Background(), "Do something unusual", "")
	if err != nil {
		t.Fatalf("AnalyzeTask failed: %v", err)
	}
	if analysis.SuggestedAgents[0].Name != "GeneralAgent" {
		t.Errorf("agent name = %q, want GeneralAgent", analysis.SuggestedAgents[0].Name)
	}
}

func TestOffline_PlanAgentAction(t *testing.T) {
	svc := NewOffline()

	plan, err := svc.PlanAgentAction(context.Background(), "prompt", "input", "", []string{"calculator", "datetime_tool"})
	if err != nil {
		t.Fatalf("PlanAgentAction failed: %v", err)
	}
	if len(plan.ToolsNeeded) != 2 {
		t.Errorf("tools needed = %v, want 2 entries", plan.ToolsNeeded)
	}
	if plan.ConfidenceLevel <= 0 || plan.ConfidenceLevel > 1 {
		t.Errorf("confidence = %f, want in (0,1]", plan.ConfidenceLevel)
	}
	if plan.Reasoning == "" {
		t.Error("reasoning should be non-empty")
	}
}

func TestOffline_Synthesize(t *testing.T) {
	svc := NewOffline()

	results := []map[string]any{
		{"agent_name": "SummarizerAgent", "success": true, "output": "Summary: key points extracted."},
		{"agent_name": "SearchAgent", "success": false, "output": ""},
	}

	synthesis, err := svc.Synthesize(context.Background(), results, "Summarize this text")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if synthesis.FinalAnswer == "" {
		t.Error("final answer should be non-empty")
	}
	if synthesis.ConfidenceScore < 0 || synthesis.ConfidenceScore > 1 {
		t.Errorf("confidence = %f, want in [0,1]", synthesis.ConfidenceScore)
	}
	if synthesis.ConfidenceScore != 0.5 {
		t.Errorf("confidence = %f, want 0.5 with one of two agents succeeding", synthesis.ConfidenceScore)
	}
}

func TestFallbackAgentDefinition_FillsDefaults(t *testing.T) {
	def := FallbackAgentDefinition(SuggestedAgent{})

	if def.Name != "DynamicAgent" {
		t.Errorf("name = %q, want DynamicAgent", def.Name)
	}
	if def.Role != "General purpose agent" {
		t.Errorf("role = %q, want general purpose", def.Role)
	}
	if len(def.Capabilities) == 0 {
		t.Error("capabilities should not be empty")
	}
	if def.PromptTemplate == "" {
		t.Error("prompt template should not be empty")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
		{"no object", "no json here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
