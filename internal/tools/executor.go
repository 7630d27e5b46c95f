package tools

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/pkg/models"
)

// recentStatusLimit bounds how many history entries a status snapshot shows.
const recentStatusLimit = 20

// ExecutionResult is the outcome of one capability invocation. Failures are
// always converted into a result; the executor never propagates errors.
type ExecutionResult struct {
	// Success reports whether the invocation succeeded.
	Success bool `json:"success"`
	// ToolName is the invoked tool.
	ToolName string `json:"tool_name"`
	// Result is the capability output on success.
	Result any `json:"result,omitempty"`
	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`
	// Step is the zero-based chain position, when run inside a chain.
	Step int `json:"step,omitempty"`
	// Skipped marks a chain step whose condition evaluated false.
	Skipped bool `json:"skipped,omitempty"`
	// SkipReason explains why a step was skipped.
	SkipReason string `json:"skip_reason,omitempty"`
	// ParallelIndex is the original spec index in a parallel batch.
	ParallelIndex int `json:"parallel_index,omitempty"`
}

// ChainStep is one step in a sequential tool chain.
type ChainStep struct {
	// Tool is the tool name to invoke.
	Tool string `json:"tool" yaml:"tool"`
	// Params are the step parameters. String values of the form
	// "$context.<key>" resolve against the accumulated chain context.
	Params map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Condition optionally guards the step. False or malformed skips it.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	// ContinueOnError keeps the chain going after this step fails.
	ContinueOnError bool `json:"continue_on_error,omitempty" yaml:"continue_on_error,omitempty"`
	// Delay suspends the chain after this step before the next one.
	Delay time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// ToolSpec is one entry in a parallel batch.
type ToolSpec struct {
	// Tool is the tool name to invoke.
	Tool string `json:"tool" yaml:"tool"`
	// Params are the invocation parameters.
	Params map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ToolStats aggregates usage counts for one tool, computed from history.
type ToolStats struct {
	// Invocations is the total number of recorded invocations.
	Invocations int `json:"invocations"`
	// Successes counts completed invocations.
	Successes int `json:"successes"`
	// Errors counts failed and errored invocations.
	Errors int `json:"errors"`
	// SuccessRate is Successes / Invocations.
	SuccessRate float64 `json:"success_rate"`
}

// StatusSnapshot describes in-flight and recent executions.
type StatusSnapshot struct {
	// ActiveCount is the number of in-flight invocations.
	ActiveCount int `json:"active_executions"`
	// Active lists the in-flight records.
	Active []models.ToolExecutionRecord `json:"active_details"`
	// Recent lists the most recent completed records, oldest first.
	Recent []models.ToolExecutionRecord `json:"recent_details"`
	// TotalExecutions is the full history length.
	TotalExecutions int `json:"total_executions"`
}

// Executor runs capability invocations and tracks in-flight and historical
// executions. The active map and history are guarded by a single mutex; the
// history is bounded and feeds statistics only.
type Executor struct {
	registry   *Registry
	db         *store.DB
	historyCap int
	entropy    *ulid.MonotonicEntropy

	mu      sync.RWMutex
	active  map[string]*models.ToolExecutionRecord
	history []models.ToolExecutionRecord
}

// NewExecutor creates an executor over the given registry. db may be nil,
// in which case durable execution records are skipped.
func NewExecutor(registry *Registry, db *store.DB, historyCap int) *Executor {
	if historyCap <= 0 {
		historyCap = 200
	}
	return &Executor{
		registry:   registry,
		db:         db,
		historyCap: historyCap,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		active:     make(map[string]*models.ToolExecutionRecord),
	}
}

// ExecuteOne runs a single capability invocation for an agent. The record
// leaves the active set the moment it finishes, success or failure.
func (e *Executor) ExecuteOne(ctx context.Context, agentID, toolName string, params map[string]any) ExecutionResult {
	record := &models.ToolExecutionRecord{
		ID:        e.newExecutionID(),
		AgentID:   agentID,
		ToolName:  toolName,
		Params:    params,
		Status:    models.ToolExecutionRunning,
		StartedAt: time.Now(),
	}

	e.mu.Lock()
	e.active[record.ID] = record
	e.mu.Unlock()

	dbExec := e.recordExecutionStart(agentID, toolName, params)

	result := e.invoke(ctx, toolName, params)

	status := models.ToolExecutionCompleted
	if !result.Success {
		status = models.ToolExecutionFailed
	}
	e.finishRecord(record, status, result.Result, result.Error)
	e.recordExecutionEnd(dbExec, status, result)

	log.Printf("[executor] tool %s execution completed for agent %s: success=%v", toolName, agentID, result.Success)
	return result
}

// ExecuteChain runs steps in sequence, propagating successful results
// through the chain context as step_<i>_result and <tool>_result. A failed
// step without ContinueOnError halts the chain; later steps never appear in
// the result list.
func (e *Executor) ExecuteChain(ctx context.Context, agentID string, steps []ChainStep) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(steps))
	chainContext := make(map[string]any)

	log.Printf("[executor] starting tool chain for agent %s with %d steps", agentID, len(steps))

	for i, step := range steps {
		if step.Condition != "" && !EvaluateCondition(step.Condition, chainContext) {
			log.Printf("[executor] skipping step %d: condition not met", i)
			results = append(results, ExecutionResult{
				ToolName:   step.Tool,
				Step:       i,
				Skipped:    true,
				SkipReason: "condition_not_met",
			})
			continue
		}

		resolved := resolveContextVariables(step.Params, chainContext)

		result := e.ExecuteOne(ctx, agentID, step.Tool, resolved)
		result.Step = i
		results = append(results, result)

		if result.Success {
			chainContext[fmt.Sprintf("step_%d_result", i)] = result.Result
			chainContext[step.Tool+"_result"] = result.Result
		}

		if !result.Success && !step.ContinueOnError {
			log.Printf("[executor] chain stopped at step %d due to tool failure", i)
			break
		}

		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(step.Delay):
			}
		}
	}

	log.Printf("[executor] tool chain completed for agent %s: %d steps executed", agentID, len(results))
	return results
}

// ExecuteParallel fans out specs concurrently and fans back in. Each result
// carries its original index; a panic in one capability becomes a failed
// result and never aborts siblings.
func (e *Executor) ExecuteParallel(ctx context.Context, agentID string, specs []ToolSpec) []ExecutionResult {
	log.Printf("[executor] starting parallel tool execution for agent %s: %d tools", agentID, len(specs))

	results := make([]ExecutionResult, len(specs))
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(index int, spec ToolSpec) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[index] = ExecutionResult{
						Success:       false,
						ToolName:      spec.Tool,
						Error:         fmt.Sprintf("panic: %v", r),
						ParallelIndex: index,
					}
				}
			}()

			result := e.ExecuteOne(ctx, agentID, spec.Tool, spec.Params)
			result.ParallelIndex = index
			results[index] = result
		}(i, spec)
	}

	wg.Wait()
	log.Printf("[executor] parallel tool execution completed for agent %s", agentID)
	return results
}

// Stats computes per-tool usage counts from history at call time.
func (e *Executor) Stats() map[string]ToolStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := make(map[string]ToolStats)
	for _, record := range e.history {
		s := stats[record.ToolName]
		s.Invocations++
		switch record.Status {
		case models.ToolExecutionCompleted:
			s.Successes++
		case models.ToolExecutionFailed, models.ToolExecutionError:
			s.Errors++
		}
		stats[record.ToolName] = s
	}

	for name, s := range stats {
		if s.Invocations > 0 {
			s.SuccessRate = float64(s.Successes) / float64(s.Invocations)
		}
		stats[name] = s
	}
	return stats
}

// Status returns a snapshot of in-flight and recent executions, optionally
// filtered to one agent. Pass an empty agentID for all agents.
func (e *Executor) Status(agentID string) StatusSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var active []models.ToolExecutionRecord
	for _, record := range e.active {
		if agentID == "" || record.AgentID == agentID {
			active = append(active, *record)
		}
	}

	start := len(e.history) - recentStatusLimit
	if start < 0 {
		start = 0
	}
	var recent []models.ToolExecutionRecord
	for _, record := range e.history[start:] {
		if agentID == "" || record.AgentID == agentID {
			recent = append(recent, record)
		}
	}

	return StatusSnapshot{
		ActiveCount:     len(active),
		Active:          active,
		Recent:          recent,
		TotalExecutions: len(e.history),
	}
}

// invoke looks up, validates, and runs the capability, converting every
// failure mode into a result.
func (e *Executor) invoke(ctx context.Context, toolName string, params map[string]any) ExecutionResult {
	tool, err := e.registry.Lookup(toolName)
	if err != nil {
		return ExecutionResult{ToolName: toolName, Error: err.Error()}
	}

	if err := tool.ValidateParams(params); err != nil {
		return ExecutionResult{ToolName: toolName, Error: err.Error()}
	}

	result, err := tool.Invoke(ctx, params)
	if err != nil {
		return ExecutionResult{ToolName: toolName, Error: err.Error()}
	}
	return ExecutionResult{Success: true, ToolName: toolName, Result: result}
}

// finishRecord moves a record from the active set to the bounded history.
func (e *Executor) finishRecord(record *models.ToolExecutionRecord, status models.ToolExecutionStatus, result any, errMsg string) {
	now := time.Now()
	record.Status = status
	record.Result = result
	record.Error = errMsg
	record.FinishedAt = &now
	record.Duration = now.Sub(record.StartedAt)

	e.mu.Lock()
	delete(e.active, record.ID)
	e.history = append(e.history, *record)
	if len(e.history) > e.historyCap {
		e.history = e.history[len(e.history)-e.historyCap:]
	}
	e.mu.Unlock()
}

func (e *Executor) newExecutionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String()
}

// recordExecutionStart creates the durable bracketing record.
// Store failures are logged, never fatal.
func (e *Executor) recordExecutionStart(agentID, toolName string, params map[string]any) *models.AgentExecution {
	if e.db == nil {
		return nil
	}

	exec := &models.AgentExecution{
		ID:        e.newExecutionID(),
		AgentID:   agentID,
		Action:    "execute_tool_" + toolName,
		Input:     map[string]any{"tool": toolName, "parameters": params},
		Status:    models.ExecutionRunning,
		StartedAt: time.Now(),
	}
	if err := e.db.CreateExecution(exec); err != nil {
		log.Printf("[executor] warning: record execution start: %v", err)
		return nil
	}
	return exec
}

func (e *Executor) recordExecutionEnd(exec *models.AgentExecution, status models.ToolExecutionStatus, result ExecutionResult) {
	if e.db == nil || exec == nil {
		return
	}

	now := time.Now()
	exec.FinishedAt = &now
	exec.ToolsUsed = []string{result.ToolName}
	exec.Output = map[string]any{"success": result.Success, "result": result.Result}
	if status == models.ToolExecutionCompleted {
		exec.Status = models.ExecutionCompleted
	} else {
		exec.Status = models.ExecutionFailed
		exec.Error = result.Error
	}
	if err := e.db.UpdateExecution(exec); err != nil {
		log.Printf("[executor] warning: record execution end: %v", err)
	}
}

// resolveContextVariables substitutes "$context.<key>" string values with
// values from the chain context, descending into nested maps and lists.
// Unknown keys keep the placeholder string, matching lookup semantics where
// only known keys substitute.
func resolveContextVariables(params map[string]any, chainContext map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	resolved := make(map[string]any, len(params))
	for key, value := range params {
		resolved[key] = resolveValue(value, chainContext)
	}
	return resolved
}

func resolveValue(value any, chainContext map[string]any) any {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, "$context.") {
			contextKey := strings.TrimPrefix(v, "$context.")
			if resolved, ok := chainContext[contextKey]; ok {
				return resolved
			}
		}
		return v
	case map[string]any:
		return resolveContextVariables(v, chainContext)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveValue(item, chainContext)
		}
		return out
	default:
		return value
	}
}
