// Package orchestrator drives submitted tasks end to end: analysis, agent
// creation, prioritized execution, synthesis, and persistence. Each task runs
// in its own goroutine; submission returns as soon as the analysis is ready.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/euna/internal/agent"
	"github.com/ShayCichocki/euna/internal/memory"
	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/pkg/models"
)

// ErrTaskNotFound is returned when neither memory nor the store knows a task.
var ErrTaskNotFound = errors.New("task not found")

// SubmitResult is what a caller gets back from Submit, before execution.
type SubmitResult struct {
	// TaskID identifies the accepted task.
	TaskID string `json:"task_id"`
	// Status is the task status at return time, always pending.
	Status models.TaskStatus `json:"status"`
	// Analysis is the reasoning service's task analysis.
	Analysis *reasoning.TaskAnalysis `json:"analysis"`
}

// StatusView is the assembled view of one task.
type StatusView struct {
	// Task is the task record.
	Task *models.Task `json:"task"`
	// Agents lists the task's agents.
	Agents []models.Agent `json:"agents"`
	// AgentResults holds per-agent result maps when tracked in memory.
	AgentResults []map[string]any `json:"agent_results,omitempty"`
	// FinalResult is the synthesis, once the task completed.
	FinalResult *reasoning.Synthesis `json:"final_result,omitempty"`
	// Logs are the task's durable log entries.
	Logs []models.TaskLog `json:"logs,omitempty"`
	// FromMemory is true when the view came from the live plan.
	FromMemory bool `json:"from_memory"`
}

// plan is the in-memory execution state for one task.
type plan struct {
	task      *models.Task
	analysis  *reasoning.TaskAnalysis
	runtimes  []*agent.Runtime
	results   []map[string]any
	final     *reasoning.Synthesis
	cancelled bool
}

// Orchestrator owns the active-task map and runs tasks to completion.
type Orchestrator struct {
	db          *store.DB
	memories    memory.Service
	reasoner    reasoning.Service
	factory     *agent.Factory
	graceWindow time.Duration

	mu    sync.RWMutex
	plans map[string]*plan
}

// New creates an orchestrator. db may be nil for fully in-memory runs.
func New(db *store.DB, memories memory.Service, reasoner reasoning.Service, factory *agent.Factory, graceWindow time.Duration) *Orchestrator {
	if graceWindow <= 0 {
		graceWindow = 5 * time.Minute
	}
	return &Orchestrator{
		db:          db,
		memories:    memories,
		reasoner:    reasoner,
		factory:     factory,
		graceWindow: graceWindow,
		plans:       make(map[string]*plan),
	}
}

// Submit accepts a task, returns its analysis, and schedules execution in
// the background. The caller never waits for the task to finish.
func (o *Orchestrator) Submit(ctx context.Context, input, sessionID string, priority models.TaskPriority) (*SubmitResult, error) {
	if input == "" {
		return nil, errors.New("task input is required")
	}
	if !priority.Valid() {
		priority = models.PriorityMedium
	}

	now := time.Now()
	task := &models.Task{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Input:     input,
		Priority:  priority,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if o.db != nil {
		if err := o.db.CreateTask(task); err != nil {
			return nil, fmt.Errorf("persist task: %w", err)
		}
	}
	o.appendLog(task.ID, models.LogLevelInfo, "task submitted")

	taskContext := o.recallContext(ctx, input, task.ID)

	analysis, err := o.reasoner.AnalyzeTask(ctx, input, taskContext)
	if err != nil {
		log.Printf("[orchestrator] task analysis failed, using fallback: %v", err)
		analysis = reasoning.FallbackAnalysis()
	}

	p := &plan{task: task, analysis: analysis}
	o.mu.Lock()
	o.plans[task.ID] = p
	o.mu.Unlock()

	log.Printf("[orchestrator] task %s submitted: %d suggested agents, complexity %s",
		task.ID, len(analysis.SuggestedAgents), analysis.Complexity)

	go o.runToCompletion(task.ID, input, taskContext)

	return &SubmitResult{TaskID: task.ID, Status: task.Status, Analysis: analysis}, nil
}

// runToCompletion drives one task: agent creation, prioritized execution,
// synthesis, and terminal persistence. Orchestration-level failures mark the
// task failed; individual agent failures are already contained.
func (o *Orchestrator) runToCompletion(taskID, input, taskContext string) {
	ctx := context.Background()

	p := o.lookupPlan(taskID)
	if p == nil {
		return
	}

	o.setTaskStatus(p, models.TaskStatusInProgress)
	o.appendLog(taskID, models.LogLevelInfo, "task execution started")

	runtimes, err := o.createAgents(ctx, p, taskContext)
	if err != nil {
		o.failTask(p, fmt.Errorf("create agents: %w", err))
		return
	}

	o.mu.Lock()
	p.runtimes = runtimes
	o.mu.Unlock()

	results := o.executeByPriority(ctx, p, runtimes, input, taskContext)

	o.mu.Lock()
	p.results = results
	cancelled := p.cancelled
	o.mu.Unlock()
	if cancelled {
		log.Printf("[orchestrator] task %s cancelled, skipping synthesis", taskID)
		o.scheduleEviction(taskID)
		return
	}

	synthesis, err := o.reasoner.Synthesize(ctx, results, input)
	if err != nil {
		log.Printf("[orchestrator] synthesis failed, using fallback: %v", err)
		synthesis = reasoning.FallbackSynthesis(results)
	}

	o.mu.Lock()
	// Cancel may have landed while synthesis was in flight; the cancelled
	// status is terminal and must not be overwritten.
	if p.cancelled {
		o.mu.Unlock()
		log.Printf("[orchestrator] task %s cancelled during synthesis, discarding result", taskID)
		o.scheduleEviction(taskID)
		return
	}
	p.final = synthesis
	p.task.Status = models.TaskStatusCompleted
	p.task.Result = map[string]any{
		"final_answer":     synthesis.FinalAnswer,
		"key_insights":     synthesis.KeyInsights,
		"confidence_score": synthesis.ConfidenceScore,
	}
	now := time.Now()
	p.task.CompletedAt = &now
	p.task.UpdatedAt = now
	o.mu.Unlock()

	o.persistTask(p.task)
	o.appendLog(taskID, models.LogLevelInfo, "task completed")
	o.rememberOutcome(ctx, p, synthesis)

	log.Printf("[orchestrator] task %s completed: confidence %.2f", taskID, synthesis.ConfidenceScore)
	o.scheduleEviction(taskID)
}

// createAgents instantiates one agent per suggestion. Dynamic suggestions go
// through the reasoning service; default suggestions use the template path.
func (o *Orchestrator) createAgents(ctx context.Context, p *plan, taskContext string) ([]*agent.Runtime, error) {
	suggestions := p.analysis.SuggestedAgents
	if len(suggestions) == 0 {
		suggestions = reasoning.FallbackAnalysis().SuggestedAgents
	}

	runtimes := make([]*agent.Runtime, 0, len(suggestions))
	for _, suggestion := range suggestions {
		var (
			a   *models.Agent
			err error
		)
		if suggestion.Type == models.AgentTypeDynamic {
			a, err = o.factory.CreateDynamic(ctx, p.task.ID, suggestion, taskContext)
		} else {
			a, err = o.factory.CreateDefault(p.task.ID, suggestion.Name, suggestion.Priority)
		}
		if err != nil {
			return nil, err
		}
		runtimes = append(runtimes, o.factory.Runtime(a))
	}
	return runtimes, nil
}

// executeByPriority runs high-priority agents strictly in order, then the
// rest: a single remaining agent runs inline, two or more run concurrently
// with per-agent failure isolation.
func (o *Orchestrator) executeByPriority(ctx context.Context, p *plan, runtimes []*agent.Runtime, input, taskContext string) []map[string]any {
	var highPriority, others []*agent.Runtime
	for _, rt := range runtimes {
		switch rt.Agent().Priority {
		case models.PriorityHigh, models.PriorityUrgent:
			highPriority = append(highPriority, rt)
		default:
			others = append(others, rt)
		}
	}

	var results []map[string]any
	for _, rt := range highPriority {
		if o.isCancelled(p) {
			return results
		}
		results = append(results, o.executeAgent(ctx, rt, input, taskContext))
	}

	if o.isCancelled(p) {
		return results
	}

	switch len(others) {
	case 0:
	case 1:
		results = append(results, o.executeAgent(ctx, others[0], input, taskContext))
	default:
		parallel := make([]map[string]any, len(others))
		var wg sync.WaitGroup
		for i, rt := range others {
			wg.Add(1)
			go func(index int, rt *agent.Runtime) {
				defer wg.Done()
				parallel[index] = o.executeAgent(ctx, rt, input, taskContext)
			}(i, rt)
		}
		wg.Wait()
		results = append(results, parallel...)
	}
	return results
}

// executeAgent runs one agent cycle and marks the agent terminal. A panic in
// the cycle becomes a failed result so siblings are never aborted.
func (o *Orchestrator) executeAgent(ctx context.Context, rt *agent.Runtime, input, taskContext string) (result map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] agent %s panicked: %v", rt.Agent().Name, r)
			rt.MarkCompleted(false)
			result = map[string]any{
				"agent_id":   rt.Agent().ID,
				"agent_name": rt.Agent().Name,
				"success":    false,
				"output":     fmt.Sprintf("agent crashed: %v", r),
			}
		}
	}()

	result = rt.Execute(ctx, input, taskContext)
	success, _ := result["success"].(bool)
	rt.MarkCompleted(success)
	return result
}

// Status assembles a view of one task, preferring the live in-memory plan
// and falling back to the store after eviction.
func (o *Orchestrator) Status(taskID string) (*StatusView, error) {
	o.mu.RLock()
	p, ok := o.plans[taskID]
	if ok {
		view := &StatusView{
			Task:         cloneTask(p.task),
			AgentResults: append([]map[string]any(nil), p.results...),
			FinalResult:  p.final,
			FromMemory:   true,
		}
		for _, rt := range p.runtimes {
			view.Agents = append(view.Agents, rt.AgentView())
		}
		o.mu.RUnlock()

		if o.db != nil {
			if logs, err := o.db.TaskLogs(taskID); err == nil {
				view.Logs = logs
			}
		}
		return view, nil
	}
	o.mu.RUnlock()

	if o.db == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	task, err := o.db.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	view := &StatusView{Task: task}
	if agents, err := o.db.TaskAgents(taskID); err == nil {
		view.Agents = agents
	}
	if logs, err := o.db.TaskLogs(taskID); err == nil {
		view.Logs = logs
	}
	if task.Result != nil {
		view.FinalResult = synthesisFromResult(task.Result)
	}
	return view, nil
}

// Cancel marks an in-memory task and its still-active agents cancelled.
// Tasks already evicted or unknown report not found; cancellation is
// cooperative, in-flight calls are not aborted.
func (o *Orchestrator) Cancel(taskID string) error {
	o.mu.Lock()
	p, ok := o.plans[taskID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if p.task.Status.Terminal() {
		o.mu.Unlock()
		return fmt.Errorf("task %s is already %s", taskID, p.task.Status)
	}

	p.cancelled = true
	p.task.Status = models.TaskStatusCancelled
	now := time.Now()
	p.task.CompletedAt = &now
	p.task.UpdatedAt = now
	runtimes := append([]*agent.Runtime(nil), p.runtimes...)
	o.mu.Unlock()

	for _, rt := range runtimes {
		rt.MarkCancelled()
	}

	o.persistTask(p.task)
	o.appendLog(taskID, models.LogLevelWarning, "task cancelled")
	log.Printf("[orchestrator] task %s cancelled", taskID)
	return nil
}

// ActiveAgents lists the still-active agents across all in-memory tasks.
func (o *Orchestrator) ActiveAgents() []models.Agent {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var active []models.Agent
	for _, p := range o.plans {
		for _, rt := range p.runtimes {
			if a := rt.AgentView(); a.Status == models.AgentStatusActive {
				active = append(active, a)
			}
		}
	}
	return active
}

// ActiveTaskCount reports how many tasks are tracked in memory.
func (o *Orchestrator) ActiveTaskCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.plans)
}

// scheduleEviction drops the in-memory plan after the grace window so late
// status queries stay fast while memory stays bounded.
func (o *Orchestrator) scheduleEviction(taskID string) {
	time.AfterFunc(o.graceWindow, func() {
		o.mu.Lock()
		delete(o.plans, taskID)
		o.mu.Unlock()
		log.Printf("[orchestrator] evicted task %s from memory", taskID)
	})
}

func (o *Orchestrator) lookupPlan(taskID string) *plan {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.plans[taskID]
}

func (o *Orchestrator) isCancelled(p *plan) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return p.cancelled
}

func (o *Orchestrator) setTaskStatus(p *plan, status models.TaskStatus) {
	o.mu.Lock()
	p.task.Status = status
	p.task.UpdatedAt = time.Now()
	o.mu.Unlock()
	o.persistTask(p.task)
}

func (o *Orchestrator) failTask(p *plan, cause error) {
	log.Printf("[orchestrator] task %s failed: %v", p.task.ID, cause)

	o.mu.Lock()
	p.task.Status = models.TaskStatusFailed
	p.task.Error = cause.Error()
	now := time.Now()
	p.task.CompletedAt = &now
	p.task.UpdatedAt = now
	o.mu.Unlock()

	o.persistTask(p.task)
	o.appendLog(p.task.ID, models.LogLevelError, "task failed: "+cause.Error())
	o.scheduleEviction(p.task.ID)
}

func (o *Orchestrator) persistTask(task *models.Task) {
	if o.db == nil {
		return
	}
	if err := o.db.UpdateTask(task); err != nil {
		log.Printf("[orchestrator] warning: persist task %s: %v", task.ID, err)
	}
}

func (o *Orchestrator) appendLog(taskID string, level models.LogLevel, message string) {
	if o.db == nil {
		return
	}
	if err := o.db.AppendTaskLog(taskID, level, message, nil); err != nil {
		log.Printf("[orchestrator] warning: append task log: %v", err)
	}
}

func (o *Orchestrator) recallContext(ctx context.Context, input, taskID string) string {
	if o.memories == nil {
		return ""
	}
	blob, err := o.memories.ContextFor(ctx, input, taskID)
	if err != nil {
		log.Printf("[orchestrator] warning: memory recall: %v", err)
		return ""
	}
	return blob
}

func (o *Orchestrator) rememberOutcome(ctx context.Context, p *plan, synthesis *reasoning.Synthesis) {
	if o.memories == nil {
		return
	}
	content := fmt.Sprintf("task %q resolved: %s", p.task.Input, synthesis.FinalAnswer)
	err := o.memories.Store(ctx, content, "task_outcome",
		map[string]any{"confidence": synthesis.ConfidenceScore}, p.task.ID)
	if err != nil {
		log.Printf("[orchestrator] warning: store task outcome: %v", err)
	}
}

func cloneTask(task *models.Task) *models.Task {
	clone := *task
	return &clone
}

// synthesisFromResult rebuilds a synthesis view from a persisted result map.
func synthesisFromResult(result map[string]any) *reasoning.Synthesis {
	s := &reasoning.Synthesis{}
	if answer, ok := result["final_answer"].(string); ok {
		s.FinalAnswer = answer
	}
	if score, ok := result["confidence_score"].(float64); ok {
		s.ConfidenceScore = score
	}
	switch insights := result["key_insights"].(type) {
	case []string:
		s.KeyInsights = insights
	case []any:
		for _, insight := range insights {
			if text, ok := insight.(string); ok {
				s.KeyInsights = append(s.KeyInsights, text)
			}
		}
	}
	return s
}
