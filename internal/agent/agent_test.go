package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/pkg/models"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, tools.DefaultsConfig{HTTPTimeout: time.Second}); err != nil {
		t.Fatalf("RegisterDefaults failed: %v", err)
	}
	executor := tools.NewExecutor(registry, nil, 100)
	return NewFactory(registry, executor, reasoning.NewOffline(), nil, 10)
}

func TestTemplateFor(t *testing.T) {
	tpl := TemplateFor("SummarizerAgent")
	if tpl.Name != "SummarizerAgent" {
		t.Errorf("expected SummarizerAgent, got %s", tpl.Name)
	}
	if len(tpl.PreferredTools) == 0 {
		t.Error("template should list preferred tools")
	}

	fallback := TemplateFor("NoSuchAgent")
	if fallback.Name != "GeneralAgent" {
		t.Errorf("unknown names should fall back to GeneralAgent, got %s", fallback.Name)
	}
}

func TestFactory_CreateDefault(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SearchAgent", models.PriorityHigh)
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	if a.Type != models.AgentTypeDefault {
		t.Errorf("expected default type, got %s", a.Type)
	}
	if a.Priority != models.PriorityHigh {
		t.Errorf("explicit priority should win, got %s", a.Priority)
	}
	if a.Status != models.AgentStatusActive {
		t.Errorf("new agents should be active, got %s", a.Status)
	}
	if a.ID == "" {
		t.Error("agent should get an ID")
	}
}

func TestFactory_CreateDefault_InvalidPriorityUsesTemplate(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SummarizerAgent", models.TaskPriority("bogus"))
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	if a.Priority != models.PriorityMedium {
		t.Errorf("invalid priority should fall back to template priority, got %s", a.Priority)
	}
}

func TestFactory_CreateDynamic(t *testing.T) {
	factory := newTestFactory(t)

	spec := reasoning.SuggestedAgent{
		Name:         "DataCruncher",
		Type:         models.AgentTypeDynamic,
		Role:         "crunches numbers",
		Capabilities: []string{"calculation"},
		Priority:     models.PriorityUrgent,
	}
	a, err := factory.CreateDynamic(context.Background(), "task-1", spec, "")
	if err != nil {
		t.Fatalf("CreateDynamic failed: %v", err)
	}
	if a.Type != models.AgentTypeDynamic {
		t.Errorf("expected dynamic type, got %s", a.Type)
	}
	if a.Name != "DataCruncher" {
		t.Errorf("expected DataCruncher, got %s", a.Name)
	}
	if len(a.PreferredTools) == 0 {
		t.Error("dynamic agents should get preferred tools")
	}
}

func TestRuntime_ExecuteNeverErrors(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SummarizerAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}

	result := factory.Runtime(a).Execute(context.Background(), "Summarize this short passage about Go. Go is fast. Go is simple.", "")
	if result["agent_name"] != "SummarizerAgent" {
		t.Errorf("unexpected agent_name: %v", result["agent_name"])
	}
	if _, ok := result["success"].(bool); !ok {
		t.Error("result must carry a boolean success")
	}
	output, _ := result["output"].(string)
	if output == "" {
		t.Error("result must carry a non-empty output")
	}
}

func TestRuntime_ExecuteUsesPreferredTools(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SummarizerAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}

	result := factory.Runtime(a).Execute(context.Background(), "Summarize: Go builds fast. Go runs fast. Deployment is easy.", "")
	used, _ := result["tools_used"].([]string)
	found := false
	for _, name := range used {
		if name == "text_summarizer" {
			found = true
		}
	}
	if !found {
		t.Errorf("summarizer agent should use text_summarizer, used %v", used)
	}
}

func TestRuntime_HistoryCapped(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SchedulerAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	runtime := factory.Runtime(a)

	for i := 0; i < 15; i++ {
		runtime.Execute(context.Background(), "what time is it", "")
	}

	if got := len(runtime.History()); got != 10 {
		t.Errorf("history should be capped at 10, got %d", got)
	}
	metrics := runtime.Snapshot()
	if metrics.Executions != 15 {
		t.Errorf("metrics should count all executions, got %d", metrics.Executions)
	}
}

func TestRuntime_MarkCompleted(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SearchAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	runtime := factory.Runtime(a)

	runtime.MarkCompleted(true)
	if a.Status != models.AgentStatusCompleted || a.CompletedAt == nil {
		t.Errorf("unexpected terminal state: %s %v", a.Status, a.CompletedAt)
	}

	b, err := factory.CreateDefault("task-1", "SearchAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	factory.Runtime(b).MarkCompleted(false)
	if b.Status != models.AgentStatusFailed {
		t.Errorf("expected failed status, got %s", b.Status)
	}
}

func TestRuntime_MarkCancelled(t *testing.T) {
	factory := newTestFactory(t)

	a, err := factory.CreateDefault("task-1", "SearchAgent", "")
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	factory.Runtime(a).MarkCancelled()
	if a.Status != models.AgentStatusCancelled {
		t.Errorf("expected cancelled status, got %s", a.Status)
	}
}

func TestDeriveParams(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		input string
		check func(t *testing.T, params map[string]any)
	}{
		{
			name:  "web search truncates query",
			tool:  "web_search",
			input: strings.Repeat("golang ", 40),
			check: func(t *testing.T, params map[string]any) {
				query := params["query"].(string)
				if len(query) > 120 {
					t.Errorf("query too long: %d", len(query))
				}
			},
		},
		{
			name:  "calculator extracts expression",
			tool:  "calculator",
			input: "please compute 12 * (3 + 4) for me",
			check: func(t *testing.T, params map[string]any) {
				if params["expression"] != "12 * (3 + 4)" {
					t.Errorf("unexpected expression: %q", params["expression"])
				}
			},
		},
		{
			name:  "calculator defaults without numbers",
			tool:  "calculator",
			input: "no math here",
			check: func(t *testing.T, params map[string]any) {
				if params["expression"] != "0" {
					t.Errorf("expected safe default, got %q", params["expression"])
				}
			},
		},
		{
			name:  "datetime defaults to now",
			tool:  "datetime_tool",
			input: "anything",
			check: func(t *testing.T, params map[string]any) {
				if params["operation"] != "now" {
					t.Errorf("expected now, got %v", params["operation"])
				}
			},
		},
		{
			name:  "json parser extracts document",
			tool:  "json_parser",
			input: `parse {"a": 1} please`,
			check: func(t *testing.T, params map[string]any) {
				if params["json_string"] != `{"a": 1}` {
					t.Errorf("unexpected document: %q", params["json_string"])
				}
			},
		},
		{
			name:  "http request extracts url",
			tool:  "http_request",
			input: "fetch https://example.com/page please",
			check: func(t *testing.T, params map[string]any) {
				if params["url"] != "https://example.com/page" {
					t.Errorf("unexpected url: %q", params["url"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, DeriveParams(tt.tool, tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	longReasoning := strings.Repeat("because the request requires careful analysis ", 3)

	tests := []struct {
		name        string
		plan        *reasoning.ActionPlan
		results     []tools.ExecutionResult
		wantSuccess bool
	}{
		{
			name: "all tools succeed with strong plan",
			plan: &reasoning.ActionPlan{
				Reasoning:       longReasoning,
				PlannedActions:  []string{"search"},
				ConfidenceLevel: 0.9,
			},
			results:     []tools.ExecutionResult{{Success: true}, {Success: true}},
			wantSuccess: true,
		},
		{
			name: "all tools fail",
			plan: &reasoning.ActionPlan{
				Reasoning:       "short",
				ConfidenceLevel: 0.3,
			},
			results:     []tools.ExecutionResult{{Success: false}},
			wantSuccess: false,
		},
		{
			name: "no tools but substantial plan",
			plan: &reasoning.ActionPlan{
				Reasoning:       longReasoning,
				PlannedActions:  []string{"think"},
				ConfidenceLevel: 0.9,
			},
			wantSuccess: true,
		},
		{
			name: "weak plan without tools",
			plan: &reasoning.ActionPlan{
				Reasoning:       "meh",
				ConfidenceLevel: 0.1,
			},
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.plan, tt.results)
			if got.Success != tt.wantSuccess {
				t.Errorf("Validate success = %v (score %.2f), want %v", got.Success, got.Score, tt.wantSuccess)
			}
			if got.Score < 0 || got.Score > 1 {
				t.Errorf("score out of range: %.2f", got.Score)
			}
		})
	}
}

func TestValidate_PartialToolSuccess(t *testing.T) {
	plan := &reasoning.ActionPlan{
		Reasoning:       strings.Repeat("detailed reasoning about the request ", 3),
		PlannedActions:  []string{"a", "b"},
		ConfidenceLevel: 0.9,
	}
	results := []tools.ExecutionResult{{Success: true}, {Success: false}}

	got := Validate(plan, results)
	if got.ToolSuccessRatio != 0.5 {
		t.Errorf("expected ratio 0.5, got %.2f", got.ToolSuccessRatio)
	}
	// 0.5*0.4 + 0.3 + 0.2 + 0.1 = 0.8
	if got.Score < 0.79 || got.Score > 0.81 {
		t.Errorf("unexpected score: %.2f", got.Score)
	}
}

func TestFactory_ExecuteAgent(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "agent-test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	task := &models.Task{
		ID:        "task-exec",
		Input:     "summarize something",
		Priority:  models.PriorityMedium,
		Status:    models.TaskStatusInProgress,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, tools.DefaultsConfig{HTTPTimeout: time.Second}); err != nil {
		t.Fatalf("RegisterDefaults failed: %v", err)
	}
	executor := tools.NewExecutor(registry, db, 100)
	factory := NewFactory(registry, executor, reasoning.NewOffline(), db, 10)

	created, err := factory.CreateDefault("task-exec", "SummarizerAgent", models.PriorityMedium)
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}

	result, err := factory.ExecuteAgent(context.Background(), created.ID, "summarize this text please", "")
	if err != nil {
		t.Fatalf("ExecuteAgent failed: %v", err)
	}
	if output, _ := result["output"].(string); output == "" {
		t.Error("expected non-empty output")
	}

	stored, err := db.GetAgent(created.ID)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if stored.Status != models.AgentStatusCompleted && stored.Status != models.AgentStatusFailed {
		t.Errorf("expected terminal agent status, got %s", stored.Status)
	}

	if _, err := factory.ExecuteAgent(context.Background(), "no-such-agent", "input", ""); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestRuntime_MarkCompletedAfterCancel(t *testing.T) {
	factory := newTestFactory(t)
	a, err := factory.CreateDefault("task-1", "SearchAgent", models.PriorityMedium)
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	rt := factory.Runtime(a)

	rt.MarkCancelled()
	rt.MarkCompleted(true)

	if got := rt.AgentView().Status; got != models.AgentStatusCancelled {
		t.Errorf("agent status = %s, want cancelled", got)
	}

	// Terminal statuses never regress to one another either.
	b, err := factory.CreateDefault("task-1", "SearchAgent", models.PriorityMedium)
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	rtb := factory.Runtime(b)
	rtb.MarkCompleted(false)
	rtb.MarkCancelled()
	if got := rtb.AgentView().Status; got != models.AgentStatusFailed {
		t.Errorf("agent status = %s, want failed", got)
	}
}

func TestRuntime_ConcurrentStatusReads(t *testing.T) {
	factory := newTestFactory(t)
	a, err := factory.CreateDefault("task-1", "SummarizerAgent", models.PriorityMedium)
	if err != nil {
		t.Fatalf("CreateDefault failed: %v", err)
	}
	rt := factory.Runtime(a)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			view := rt.AgentView()
			_ = view.Status
			_ = view.CompletedAt
		}
	}()

	rt.MarkCompleted(true)
	<-done

	if got := rt.AgentView().Status; got != models.AgentStatusCompleted {
		t.Errorf("agent status = %s, want completed", got)
	}
}

func TestFactory_CreateDynamicDedupesCapabilities(t *testing.T) {
	factory := newTestFactory(t)

	spec := reasoning.SuggestedAgent{
		Name:         "DataAgent",
		Type:         models.AgentTypeDynamic,
		Role:         "analyze data",
		Capabilities: []string{"web_search", "web_search", "calculation", "web_search"},
		Priority:     models.PriorityMedium,
	}
	a, err := factory.CreateDynamic(context.Background(), "task-1", spec, "")
	if err != nil {
		t.Fatalf("CreateDynamic failed: %v", err)
	}

	want := []string{"web_search", "calculation"}
	if len(a.Capabilities) != len(want) {
		t.Fatalf("capabilities = %v, want %v", a.Capabilities, want)
	}
	for i, capability := range want {
		if a.Capabilities[i] != capability {
			t.Errorf("capabilities[%d] = %s, want %s", i, a.Capabilities[i], capability)
		}
	}
}

// crashPlanner plans exactly one tool so tests can route execution into a
// capability that panics.
type crashPlanner struct {
	*reasoning.Offline
	tool string
}

func (p *crashPlanner) PlanAgentAction(ctx context.Context, prompt, input, taskContext string, availableTools []string) (*reasoning.ActionPlan, error) {
	return &reasoning.ActionPlan{
		Reasoning:       "invoke the requested capability",
		PlannedActions:  []string{"call " + p.tool},
		ToolsNeeded:     []string{p.tool},
		ConfidenceLevel: 0.9,
	}, nil
}

func TestFactory_ExecuteAgentRecoversPanic(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "agent-panic-test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	task := &models.Task{
		ID:        "task-panic",
		Input:     "crash",
		Priority:  models.PriorityMedium,
		Status:    models.TaskStatusInProgress,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	registry := tools.NewRegistry()
	err = registry.Register("boom", "always panics", tools.ParameterSpec{}, "testing",
		tools.CapabilityFunc(func(_ context.Context, _ map[string]any) (any, error) {
			panic("capability blew up")
		}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	executor := tools.NewExecutor(registry, db, 10)
	factory := NewFactory(registry, executor, &crashPlanner{Offline: reasoning.NewOffline(), tool: "boom"}, db, 10)

	a := &models.Agent{
		ID:             "agent-boom",
		TaskID:         task.ID,
		Name:           "BoomAgent",
		Type:           models.AgentTypeDefault,
		Capabilities:   []string{"testing"},
		Priority:       models.PriorityMedium,
		PreferredTools: []string{"boom"},
		Status:         models.AgentStatusActive,
		CreatedAt:      time.Now(),
	}
	if err := db.CreateAgent(a); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	result, err := factory.ExecuteAgent(context.Background(), "agent-boom", "crash now", "")
	if err != nil {
		t.Fatalf("ExecuteAgent must not propagate the panic: %v", err)
	}
	if success, _ := result["success"].(bool); success {
		t.Error("crashed execution must report success=false")
	}
	if output, _ := result["output"].(string); output == "" {
		t.Error("crashed execution must still produce output")
	}

	stored, err := db.GetAgent("agent-boom")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if stored.Status != models.AgentStatusFailed {
		t.Errorf("agent status = %s, want failed", stored.Status)
	}
}
