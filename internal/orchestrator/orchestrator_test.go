package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/euna/internal/agent"
	"github.com/ShayCichocki/euna/internal/memory"
	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/pkg/models"
)

func newTestOrchestrator(t *testing.T, reasoner reasoning.Service) (*Orchestrator, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "orchestrator-test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, tools.DefaultsConfig{HTTPTimeout: time.Second}); err != nil {
		t.Fatalf("RegisterDefaults failed: %v", err)
	}
	executor := tools.NewExecutor(registry, db, 100)
	factory := agent.NewFactory(registry, executor, reasoner, db, 20)

	return New(db, memory.NewStoreBacked(db), reasoner, factory, time.Minute), db
}

func waitForTerminal(t *testing.T, o *Orchestrator, taskID string) *StatusView {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		view, err := o.Status(taskID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if view.Task.Status.Terminal() {
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not reach a terminal status in time")
	return nil
}

func TestOrchestrator_SummarizeScenario(t *testing.T) {
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	submitted, err := o.Submit(context.Background(),
		"Summarize this text. Go is a compiled language. Go programs build quickly. Gophers like it.",
		"session-1", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Status != models.TaskStatusPending {
		t.Errorf("submit should return a pending task, got %s", submitted.Status)
	}
	if len(submitted.Analysis.SuggestedAgents) == 0 {
		t.Fatal("analysis should suggest at least one agent")
	}
	if submitted.Analysis.SuggestedAgents[0].Name != "SummarizerAgent" {
		t.Errorf("expected SummarizerAgent, got %s", submitted.Analysis.SuggestedAgents[0].Name)
	}

	view := waitForTerminal(t, o, submitted.TaskID)
	if view.Task.Status != models.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", view.Task.Status, view.Task.Error)
	}
	if view.FinalResult == nil || view.FinalResult.FinalAnswer == "" {
		t.Fatal("completed task must carry a non-empty final answer")
	}
	if score := view.FinalResult.ConfidenceScore; score < 0 || score > 1 {
		t.Errorf("confidence out of range: %f", score)
	}
	if len(view.Agents) == 0 {
		t.Error("status view should list the task's agents")
	}
}

func TestOrchestrator_SubmitValidation(t *testing.T) {
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	if _, err := o.Submit(context.Background(), "", "", models.PriorityMedium); err == nil {
		t.Error("empty input should be rejected")
	}
}

func TestOrchestrator_StatusFallsBackToStore(t *testing.T) {
	o, db := newTestOrchestrator(t, reasoning.NewOffline())

	submitted, err := o.Submit(context.Background(), "what time is it", "", models.PriorityLow)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForTerminal(t, o, submitted.TaskID)

	// Simulate grace-window eviction.
	o.mu.Lock()
	delete(o.plans, submitted.TaskID)
	o.mu.Unlock()

	view, err := o.Status(submitted.TaskID)
	if err != nil {
		t.Fatalf("Status after eviction failed: %v", err)
	}
	if view.FromMemory {
		t.Error("evicted task should be served from the store")
	}
	if view.Task.Status != models.TaskStatusCompleted {
		t.Errorf("store view should show completed, got %s", view.Task.Status)
	}
	if view.FinalResult == nil || view.FinalResult.FinalAnswer == "" {
		t.Error("store view should reconstruct the final answer")
	}

	stored, err := db.GetTask(submitted.TaskID)
	if err != nil || stored == nil {
		t.Fatalf("task should be durable: %v", err)
	}
}

func TestOrchestrator_StatusUnknownTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	_, err := o.Status("no-such-task")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

// gatedReasoner blocks agent planning until released, keeping a task
// mid-execution long enough to cancel it.
type gatedReasoner struct {
	*reasoning.Offline
	gate chan struct{}
}

func (g *gatedReasoner) PlanAgentAction(ctx context.Context, prompt, input, taskContext string, availableTools []string) (*reasoning.ActionPlan, error) {
	<-g.gate
	return g.Offline.PlanAgentAction(ctx, prompt, input, taskContext, availableTools)
}

func TestOrchestrator_CancelMidExecution(t *testing.T) {
	reasoner := &gatedReasoner{Offline: reasoning.NewOffline(), gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, reasoner)

	submitted, err := o.Submit(context.Background(), "search for something slow", "", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Wait until the task is actually executing.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := o.Status(submitted.TaskID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if view.Task.Status == models.TaskStatusInProgress && len(view.Agents) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := o.Cancel(submitted.TaskID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(reasoner.gate)

	view, err := o.Status(submitted.TaskID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Task.Status != models.TaskStatusCancelled {
		t.Errorf("expected cancelled, got %s", view.Task.Status)
	}
	for _, a := range view.Agents {
		if a.Status == models.AgentStatusActive {
			t.Errorf("agent %s should not stay active after cancel", a.Name)
		}
	}

	// Cancelled tasks and agents stay cancelled even as the blocked agent
	// cycles unwind and report their results.
	time.Sleep(300 * time.Millisecond)
	view, err = o.Status(submitted.TaskID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Task.Status != models.TaskStatusCancelled {
		t.Errorf("status must remain cancelled, got %s", view.Task.Status)
	}
	for _, a := range view.Agents {
		if a.Status != models.AgentStatusCancelled {
			t.Errorf("agent %s status = %s, want cancelled", a.Name, a.Status)
		}
	}
}

// synthGatedReasoner blocks synthesis until released, keeping a task in the
// synthesis phase long enough to cancel it there.
type synthGatedReasoner struct {
	*reasoning.Offline
	entered chan struct{}
	gate    chan struct{}
}

func (g *synthGatedReasoner) Synthesize(ctx context.Context, agentResults []map[string]any, originalInput string) (*reasoning.Synthesis, error) {
	close(g.entered)
	<-g.gate
	return g.Offline.Synthesize(ctx, agentResults, originalInput)
}

func TestOrchestrator_CancelDuringSynthesis(t *testing.T) {
	reasoner := &synthGatedReasoner{
		Offline: reasoning.NewOffline(),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	o, db := newTestOrchestrator(t, reasoner)

	submitted, err := o.Submit(context.Background(), "what time is it", "", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-reasoner.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("task never reached synthesis")
	}

	if err := o.Cancel(submitted.TaskID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(reasoner.gate)

	// The synthesis result must be discarded, not promoted to completed.
	time.Sleep(300 * time.Millisecond)
	view, err := o.Status(submitted.TaskID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Task.Status != models.TaskStatusCancelled {
		t.Errorf("expected cancelled, got %s", view.Task.Status)
	}
	if view.FinalResult != nil {
		t.Error("cancelled task must not carry a synthesized result")
	}

	stored, err := db.GetTask(submitted.TaskID)
	if err != nil || stored == nil {
		t.Fatalf("task should be durable: %v", err)
	}
	if stored.Status != models.TaskStatusCancelled {
		t.Errorf("persisted status = %s, want cancelled", stored.Status)
	}
}

func TestOrchestrator_StatusReadsDuringExecution(t *testing.T) {
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	submitted, err := o.Submit(context.Background(), "Summarize this text. Short sentence one. Short sentence two.", "", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Hammer the agent views while the task goroutine transitions agents to
	// terminal statuses.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			o.ActiveAgents()
			if view, err := o.Status(submitted.TaskID); err == nil {
				for _, a := range view.Agents {
					_ = a.Status
				}
			}
		}
	}()

	waitForTerminal(t, o, submitted.TaskID)
	close(stop)
	<-done
}

func TestOrchestrator_CancelUnknownTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	err := o.Cancel("no-such-task")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestOrchestrator_ActiveAgents(t *testing.T) {
	reasoner := &gatedReasoner{Offline: reasoning.NewOffline(), gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, reasoner)

	submitted, err := o.Submit(context.Background(), "look up the weather", "", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(o.ActiveAgents()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(o.ActiveAgents()) == 0 {
		t.Fatal("expected active agents while the task is executing")
	}

	close(reasoner.gate)
	waitForTerminal(t, o, submitted.TaskID)

	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(o.ActiveAgents()) > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if remaining := o.ActiveAgents(); len(remaining) != 0 {
		t.Errorf("agents should be terminal after task completion: %v", remaining)
	}
}

func TestOrchestrator_MultipleAgentsParallel(t *testing.T) {
	// Multi-capability input makes the offline analyzer suggest agents and
	// the factory fan them out.
	o, _ := newTestOrchestrator(t, reasoning.NewOffline())

	submitted, err := o.Submit(context.Background(),
		"Search for Go release notes and summarize the changes", "", models.PriorityMedium)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	view := waitForTerminal(t, o, submitted.TaskID)
	if view.Task.Status != models.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", view.Task.Status)
	}
	if len(view.AgentResults) != len(view.Agents) {
		t.Errorf("expected one result per agent: %d results, %d agents",
			len(view.AgentResults), len(view.Agents))
	}
}
