package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/pkg/models"
)

// Runtime drives one agent through a plan-execute-validate cycle. Execute
// always returns a result map; failures are encoded in the map rather than
// returned as errors so sibling agents keep running.
type Runtime struct {
	agent      *models.Agent
	registry   *tools.Registry
	executor   *tools.Executor
	reasoner   reasoning.Service
	db         *store.DB
	historyCap int

	mu      sync.Mutex
	history []map[string]any
	metrics Metrics
}

// Metrics accumulates per-agent execution counters.
type Metrics struct {
	// Executions counts completed Execute cycles.
	Executions int `json:"executions"`
	// Successes counts cycles whose validation passed.
	Successes int `json:"successes"`
	// ToolInvocations counts tool calls made across all cycles.
	ToolInvocations int `json:"tool_invocations"`
}

// Agent returns the agent this runtime drives. Only fields fixed at
// creation may be read through it; use AgentView for status fields.
func (r *Runtime) Agent() *models.Agent {
	return r.agent
}

// AgentView returns a copy of the agent record taken under the runtime's
// lock, safe to read while the agent may still be transitioning.
func (r *Runtime) AgentView() models.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.agent
}

// Execute runs one full cycle: plan, run tools, validate, narrate. The
// returned map always has agent_id, agent_name, success, and output keys.
func (r *Runtime) Execute(ctx context.Context, input, taskContext string) map[string]any {
	started := time.Now()
	log.Printf("[agent] %s executing for task %s", r.agent.Name, r.agent.TaskID)

	available := r.availableTools()
	plan, err := r.reasoner.PlanAgentAction(ctx, r.agent.PromptTemplate, input, taskContext, available)
	if err != nil {
		log.Printf("[agent] %s planning failed, using fallback plan: %v", r.agent.Name, err)
		plan = reasoning.FallbackPlan()
	}

	toolResults := r.runPlannedTools(ctx, plan, available, input)

	validation := Validate(plan, toolResults)
	output := r.narrate(plan, toolResults, validation)

	result := map[string]any{
		"agent_id":         r.agent.ID,
		"agent_name":       r.agent.Name,
		"success":          validation.Success,
		"output":           output,
		"reasoning":        plan.Reasoning,
		"tools_used":       usedToolNames(toolResults),
		"tool_results":     toolResults,
		"validation_score": validation.Score,
		"duration_ms":      time.Since(started).Milliseconds(),
	}

	r.record(result, validation.Success, len(toolResults))
	log.Printf("[agent] %s finished: success=%v score=%.2f tools=%d",
		r.agent.Name, validation.Success, validation.Score, len(toolResults))
	return result
}

// History returns a copy of the capped execution history, oldest first.
func (r *Runtime) History() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]any, len(r.history))
	copy(out, r.history)
	return out
}

// Snapshot returns the current metrics counters.
func (r *Runtime) Snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// availableTools intersects the agent's preferred tools with the registry,
// then falls back to capability recommendations when nothing matches.
func (r *Runtime) availableTools() []string {
	var available []string
	for _, name := range r.agent.PreferredTools {
		if _, err := r.registry.Lookup(name); err == nil {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		available = r.registry.Recommend(r.agent.Capabilities)
	}
	return available
}

// runPlannedTools executes the planned tools that the agent may actually
// use. Tools planned outside the available set are dropped, not errors.
func (r *Runtime) runPlannedTools(ctx context.Context, plan *reasoning.ActionPlan, available []string, input string) []tools.ExecutionResult {
	allowed := make(map[string]bool, len(available))
	for _, name := range available {
		allowed[name] = true
	}

	var results []tools.ExecutionResult
	for _, toolName := range plan.ToolsNeeded {
		if !allowed[toolName] {
			log.Printf("[agent] %s skipping unavailable tool %s", r.agent.Name, toolName)
			continue
		}
		params := DeriveParams(toolName, input)
		results = append(results, r.executor.ExecuteOne(ctx, r.agent.ID, toolName, params))
	}
	return results
}

// narrate builds the human-readable output for one cycle.
func (r *Runtime) narrate(plan *reasoning.ActionPlan, toolResults []tools.ExecutionResult, validation ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.agent.Name, plan.Reasoning)

	for _, result := range toolResults {
		if result.Success {
			fmt.Fprintf(&b, "\n- %s returned: %s", result.ToolName, compactResult(result.Result))
		} else {
			fmt.Fprintf(&b, "\n- %s failed: %s", result.ToolName, result.Error)
		}
	}
	if len(plan.NextSteps) > 0 {
		fmt.Fprintf(&b, "\nSuggested next steps: %s", strings.Join(plan.NextSteps, "; "))
	}
	fmt.Fprintf(&b, "\nValidation score: %.2f", validation.Score)
	return b.String()
}

func (r *Runtime) record(result map[string]any, success bool, toolCount int) {
	r.mu.Lock()
	r.history = append(r.history, result)
	if len(r.history) > r.historyCap {
		r.history = r.history[len(r.history)-r.historyCap:]
	}
	r.metrics.Executions++
	if success {
		r.metrics.Successes++
	}
	r.metrics.ToolInvocations += toolCount
	r.mu.Unlock()
}

// MarkCompleted transitions the agent to a terminal status and persists it.
// Agents already terminal (including cancelled) are left untouched, so a
// cycle unwinding after cancellation never resurrects the agent.
func (r *Runtime) MarkCompleted(success bool) {
	r.mu.Lock()
	if r.agent.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	now := time.Now()
	if success {
		r.agent.Status = models.AgentStatusCompleted
	} else {
		r.agent.Status = models.AgentStatusFailed
	}
	r.agent.CompletedAt = &now
	snapshot := *r.agent
	r.mu.Unlock()

	r.persistAgent(&snapshot)
}

// MarkCancelled transitions the agent to cancelled and persists it.
// Already-terminal agents are left untouched.
func (r *Runtime) MarkCancelled() {
	r.mu.Lock()
	if r.agent.Status.Terminal() {
		r.mu.Unlock()
		return
	}
	now := time.Now()
	r.agent.Status = models.AgentStatusCancelled
	r.agent.CompletedAt = &now
	snapshot := *r.agent
	r.mu.Unlock()

	r.persistAgent(&snapshot)
}

func (r *Runtime) persistAgent(a *models.Agent) {
	if r.db == nil {
		return
	}
	if err := r.db.UpdateAgent(a); err != nil {
		log.Printf("[agent] warning: persist agent %s status: %v", a.ID, err)
	}
}

func usedToolNames(results []tools.ExecutionResult) []string {
	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.ToolName)
	}
	return names
}

// compactResult renders a tool result for narration, truncated so one
// verbose tool cannot flood the output.
func compactResult(result any) string {
	s := fmt.Sprint(result)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
