// Package workflow manages ordered step workflows attached to tasks:
// dependency checks, progress and ETA reporting, pause and resume, schedule
// optimization over pending tasks, and timeline assembly.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/euna/internal/memory"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/pkg/models"
)

// ErrWorkflowNotFound is returned for operations on an unknown task ID.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrStepIndexOutOfRange is returned when recording past the last step.
var ErrStepIndexOutOfRange = errors.New("step index out of range")

// ErrInvalidTransition is returned for illegal pause and resume calls.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Definition is the caller-facing workflow description, typically decoded
// from a YAML file.
type Definition struct {
	// Steps is the ordered list of steps to run.
	Steps []models.WorkflowStep `json:"steps" yaml:"steps"`
	// DependsOn lists task IDs that must complete first.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// TimeoutMinutes bounds the workflow; 0 uses the manager default.
	TimeoutMinutes int `json:"timeout_minutes,omitempty" yaml:"timeout_minutes,omitempty"`
}

// DependencyReport is the result of a dependency check.
type DependencyReport struct {
	// Satisfied is true when every dependency task is completed.
	Satisfied bool `json:"satisfied"`
	// Pending lists the dependency task IDs not yet completed.
	Pending []string `json:"pending,omitempty"`
}

// Progress describes how far a workflow has come.
type Progress struct {
	// Percentage is completed steps over total steps in [0,1].
	Percentage float64 `json:"percentage"`
	// CurrentStep is the index of the next step to apply.
	CurrentStep int `json:"current_step"`
	// CompletedSteps counts successfully recorded steps.
	CompletedSteps int `json:"completed_steps"`
	// FailedSteps counts recorded steps whose result was unsuccessful.
	FailedSteps int `json:"failed_steps"`
	// TotalSteps is the workflow length.
	TotalSteps int `json:"total_steps"`
	// IsTimedOut reports whether the deadline has passed.
	IsTimedOut bool `json:"is_timed_out"`
	// EstimatedCompletion projects when the workflow will finish. Nil until
	// at least one step has been recorded.
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// Schedule partitions pending tasks by admissibility.
type Schedule struct {
	// ImmediateExecution lists tasks ready to run under the concurrency cap.
	ImmediateExecution []string `json:"immediate_execution"`
	// ResourceLimited lists ready tasks held back by the cap.
	ResourceLimited []string `json:"resource_limited"`
	// DependencyWaiting lists tasks with unsatisfied dependencies.
	DependencyWaiting []string `json:"dependency_waiting"`
	// Recommendations are human-readable scheduling notes.
	Recommendations []string `json:"recommendations,omitempty"`
}

// TimelineEvent is one entry in a task's merged timeline.
type TimelineEvent struct {
	// At is when the event happened.
	At time.Time `json:"at"`
	// Kind is "log" or "step".
	Kind string `json:"kind"`
	// Message describes the event.
	Message string `json:"message"`
	// Level carries the log level for log events.
	Level models.LogLevel `json:"level,omitempty"`
}

// Manager owns in-memory workflow state keyed by task ID. Durable task data
// lives in the store; workflow step state is process-local by design.
type Manager struct {
	db             *store.DB
	memories       memory.Service
	defaultTimeout time.Duration
	maxConcurrent  int

	mu        sync.RWMutex
	workflows map[string]*models.TaskWorkflow
}

// NewManager creates a workflow manager. db and memories may be nil.
func NewManager(db *store.DB, memories memory.Service, defaultTimeout time.Duration, maxConcurrent int) *Manager {
	if defaultTimeout <= 0 {
		defaultTimeout = time.Hour
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Manager{
		db:             db,
		memories:       memories,
		defaultTimeout: defaultTimeout,
		maxConcurrent:  maxConcurrent,
		workflows:      make(map[string]*models.TaskWorkflow),
	}
}

// CreateWorkflow attaches a step workflow to a task.
func (m *Manager) CreateWorkflow(taskID string, definition Definition) (*models.TaskWorkflow, error) {
	if taskID == "" {
		return nil, errors.New("task id is required")
	}
	if len(definition.Steps) == 0 {
		return nil, errors.New("workflow needs at least one step")
	}

	timeout := m.defaultTimeout
	if definition.TimeoutMinutes > 0 {
		timeout = time.Duration(definition.TimeoutMinutes) * time.Minute
	}

	now := time.Now()
	w := &models.TaskWorkflow{
		TaskID:    taskID,
		Steps:     definition.Steps,
		Status:    models.TaskStatusInProgress,
		DependsOn: definition.DependsOn,
		Deadline:  now.Add(timeout),
		CreatedAt: now,
	}

	m.mu.Lock()
	m.workflows[taskID] = w
	m.mu.Unlock()

	log.Printf("[workflow] created workflow for task %s: %d steps, deadline %s",
		taskID, len(w.Steps), w.Deadline.Format(time.RFC3339))
	return w, nil
}

// Workflow returns the workflow attached to a task, if any.
func (m *Manager) Workflow(taskID string) (*models.TaskWorkflow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workflows[taskID]
	return w, ok
}

// CheckDependencies reports whether every dependency task has completed.
// A dependency counts as pending unless its stored status is completed.
func (m *Manager) CheckDependencies(taskID string) (DependencyReport, error) {
	m.mu.RLock()
	w, ok := m.workflows[taskID]
	var deps []string
	if ok {
		deps = append(deps, w.DependsOn...)
	}
	m.mu.RUnlock()

	if !ok {
		return DependencyReport{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, taskID)
	}

	report := DependencyReport{Satisfied: true}
	for _, depID := range deps {
		if m.taskCompleted(depID) {
			continue
		}
		report.Satisfied = false
		report.Pending = append(report.Pending, depID)
	}
	return report, nil
}

// RecordStepResult appends an agent result to the workflow and advances the
// cursor. Completing the final step transitions the workflow to completed
// and emits a durable summary to the memory service.
func (m *Manager) RecordStepResult(taskID string, stepIndex int, agentResult map[string]any) error {
	m.mu.Lock()
	w, ok := m.workflows[taskID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, taskID)
	}
	if stepIndex >= len(w.Steps) || stepIndex < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: step %d of %d", ErrStepIndexOutOfRange, stepIndex, len(w.Steps))
	}

	success, _ := agentResult["success"].(bool)
	w.StepResults = append(w.StepResults, models.StepResult{
		StepIndex:  stepIndex,
		Name:       w.Steps[stepIndex].Name,
		Success:    success,
		Result:     agentResult,
		RecordedAt: time.Now(),
	})
	w.CurrentStep++

	completed := w.Completed()
	if completed {
		w.Status = models.TaskStatusCompleted
	}
	summary := ""
	if completed {
		summary = m.summarize(w)
	}
	m.mu.Unlock()

	if completed {
		log.Printf("[workflow] task %s workflow completed: %d steps", taskID, stepIndex+1)
		m.emitSummary(taskID, summary)
	}
	return nil
}

// Progress reports completion state for a task's workflow.
func (m *Manager) Progress(taskID string) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workflows[taskID]
	if !ok {
		return Progress{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, taskID)
	}

	completedSteps := 0
	failedSteps := 0
	for _, result := range w.StepResults {
		if result.Success {
			completedSteps++
		} else {
			failedSteps++
		}
	}

	now := time.Now()
	p := Progress{
		Percentage:     0,
		CurrentStep:    w.CurrentStep,
		CompletedSteps: completedSteps,
		FailedSteps:    failedSteps,
		TotalSteps:     len(w.Steps),
		IsTimedOut:     w.TimedOut(now),
	}
	if len(w.Steps) > 0 {
		p.Percentage = float64(completedSteps) / float64(len(w.Steps))
	}

	if len(w.StepResults) > 0 {
		elapsed := w.StepResults[len(w.StepResults)-1].RecordedAt.Sub(w.CreatedAt)
		average := elapsed / time.Duration(len(w.StepResults))
		remaining := len(w.Steps) - w.CurrentStep
		if remaining > 0 {
			eta := now.Add(average * time.Duration(remaining))
			p.EstimatedCompletion = &eta
		} else {
			finished := w.StepResults[len(w.StepResults)-1].RecordedAt
			p.EstimatedCompletion = &finished
		}
	}
	return p, nil
}

// Pause suspends an in-progress workflow.
// Returns ErrInvalidTransition from any other state.
func (m *Manager) Pause(taskID string) error {
	return m.transition(taskID, models.TaskStatusInProgress, models.TaskStatusPaused, "paused")
}

// Resume reactivates a paused workflow.
// Returns ErrInvalidTransition from any other state.
func (m *Manager) Resume(taskID string) error {
	return m.transition(taskID, models.TaskStatusPaused, models.TaskStatusInProgress, "resumed")
}

func (m *Manager) transition(taskID string, from, to models.TaskStatus, verb string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workflows[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, taskID)
	}
	if w.Status != from {
		return fmt.Errorf("%w: cannot be %s from %s", ErrInvalidTransition, verb, w.Status)
	}
	w.Status = to
	log.Printf("[workflow] task %s workflow %s", taskID, verb)
	return nil
}

// ScheduleOptimization partitions pending tasks from the store into
// admission buckets. Admission is strictly arrival-ordered; priority does
// not reorder the immediate bucket.
func (m *Manager) ScheduleOptimization() (Schedule, error) {
	schedule := Schedule{
		ImmediateExecution: []string{},
		ResourceLimited:    []string{},
		DependencyWaiting:  []string{},
	}
	if m.db == nil {
		return schedule, nil
	}

	pending := models.TaskStatusPending
	tasks, err := m.db.ListTasks(&pending)
	if err != nil {
		return schedule, fmt.Errorf("list pending tasks: %w", err)
	}
	sort.SliceStable(tasks, func(a, b int) bool {
		return tasks[a].CreatedAt.Before(tasks[b].CreatedAt)
	})

	for _, task := range tasks {
		if !m.dependenciesSatisfied(task.ID) {
			schedule.DependencyWaiting = append(schedule.DependencyWaiting, task.ID)
			continue
		}
		if len(schedule.ImmediateExecution) < m.maxConcurrent {
			schedule.ImmediateExecution = append(schedule.ImmediateExecution, task.ID)
		} else {
			schedule.ResourceLimited = append(schedule.ResourceLimited, task.ID)
		}
	}

	if len(schedule.ResourceLimited) > 0 {
		schedule.Recommendations = append(schedule.Recommendations,
			fmt.Sprintf("%d ready tasks exceed the concurrency cap of %d; they will run as slots free up",
				len(schedule.ResourceLimited), m.maxConcurrent))
	}
	if len(schedule.DependencyWaiting) > 0 {
		schedule.Recommendations = append(schedule.Recommendations,
			fmt.Sprintf("%d tasks are waiting on incomplete dependencies", len(schedule.DependencyWaiting)))
	}
	return schedule, nil
}

// Cleanup drops in-memory state for workflows completed before the cutoff.
// Durable storage is untouched.
func (m *Manager) Cleanup(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for taskID, w := range m.workflows {
		if w.Status != models.TaskStatusCompleted || len(w.StepResults) == 0 {
			continue
		}
		if w.StepResults[len(w.StepResults)-1].RecordedAt.Before(cutoff) {
			delete(m.workflows, taskID)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[workflow] cleaned up %d completed workflows", removed)
	}
	return removed
}

// Timeline merges a task's durable logs with its workflow step events,
// ordered by time.
func (m *Manager) Timeline(taskID string) ([]TimelineEvent, error) {
	var events []TimelineEvent

	if m.db != nil {
		logs, err := m.db.TaskLogs(taskID)
		if err != nil {
			return nil, fmt.Errorf("load task logs: %w", err)
		}
		for _, entry := range logs {
			events = append(events, TimelineEvent{
				At:      entry.CreatedAt,
				Kind:    "log",
				Message: entry.Message,
				Level:   entry.Level,
			})
		}
	}

	m.mu.RLock()
	if w, ok := m.workflows[taskID]; ok {
		events = append(events, TimelineEvent{
			At:      w.CreatedAt,
			Kind:    "step",
			Message: fmt.Sprintf("workflow created with %d steps", len(w.Steps)),
		})
		for _, result := range w.StepResults {
			outcome := "succeeded"
			if !result.Success {
				outcome = "failed"
			}
			events = append(events, TimelineEvent{
				At:      result.RecordedAt,
				Kind:    "step",
				Message: fmt.Sprintf("step %d (%s) %s", result.StepIndex, result.Name, outcome),
			})
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(events, func(a, b int) bool {
		return events[a].At.Before(events[b].At)
	})
	return events, nil
}

func (m *Manager) taskCompleted(taskID string) bool {
	if m.db == nil {
		return false
	}
	task, err := m.db.GetTask(taskID)
	if err != nil {
		log.Printf("[workflow] warning: dependency lookup %s: %v", taskID, err)
		return false
	}
	return task != nil && task.Status == models.TaskStatusCompleted
}

func (m *Manager) dependenciesSatisfied(taskID string) bool {
	m.mu.RLock()
	w, ok := m.workflows[taskID]
	var deps []string
	if ok {
		deps = append(deps, w.DependsOn...)
	}
	m.mu.RUnlock()

	for _, depID := range deps {
		if !m.taskCompleted(depID) {
			return false
		}
	}
	return true
}

func (m *Manager) summarize(w *models.TaskWorkflow) string {
	succeeded := 0
	for _, result := range w.StepResults {
		if result.Success {
			succeeded++
		}
	}
	elapsed := time.Duration(0)
	if len(w.StepResults) > 0 {
		elapsed = w.StepResults[len(w.StepResults)-1].RecordedAt.Sub(w.CreatedAt)
	}
	return fmt.Sprintf("workflow for task %s completed: %d steps, %d successful, elapsed %s",
		w.TaskID, len(w.Steps), succeeded, elapsed.Round(time.Millisecond))
}

func (m *Manager) emitSummary(taskID, summary string) {
	if m.memories == nil {
		return
	}
	err := m.memories.Store(context.Background(), summary, "workflow_summary",
		map[string]any{"task_id": taskID}, taskID)
	if err != nil {
		log.Printf("[workflow] warning: store workflow summary: %v", err)
	}
}
