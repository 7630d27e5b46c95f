package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/pkg/models"
)

// ErrAgentNotFound is returned when executing an agent ID with no record.
var ErrAgentNotFound = errors.New("agent not found")

// Factory creates agents from templates or dynamic definitions and builds
// runtimes to execute them.
type Factory struct {
	registry   *tools.Registry
	executor   *tools.Executor
	reasoner   reasoning.Service
	db         *store.DB
	historyCap int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewFactory creates an agent factory. db may be nil for in-memory runs.
func NewFactory(registry *tools.Registry, executor *tools.Executor, reasoner reasoning.Service, db *store.DB, historyCap int) *Factory {
	if historyCap <= 0 {
		historyCap = 50
	}
	return &Factory{
		registry:   registry,
		executor:   executor,
		reasoner:   reasoner,
		db:         db,
		historyCap: historyCap,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// CreateDefault instantiates a template agent for a task. Unknown names get
// the generic template so creation never fails on a bad suggestion.
func (f *Factory) CreateDefault(taskID, name string, priority models.TaskPriority) (*models.Agent, error) {
	tpl := TemplateFor(name)
	if !priority.Valid() {
		priority = tpl.Priority
	}

	a := &models.Agent{
		ID:             f.newID(),
		TaskID:         taskID,
		Name:           tpl.Name,
		Type:           models.AgentTypeDefault,
		Role:           tpl.Role,
		Capabilities:   tpl.Capabilities,
		Priority:       priority,
		PromptTemplate: tpl.PromptTemplate,
		PreferredTools: tpl.PreferredTools,
		Status:         models.AgentStatusActive,
		CreatedAt:      time.Now(),
	}
	if err := f.persist(a); err != nil {
		return nil, err
	}

	log.Printf("[agent] created default agent %s (%s) for task %s", a.Name, a.ID, taskID)
	return a, nil
}

// CreateDynamic asks the reasoning service to expand a suggestion into a
// full definition, falling back to a deterministic definition when the
// service fails.
func (f *Factory) CreateDynamic(ctx context.Context, taskID string, spec reasoning.SuggestedAgent, taskContext string) (*models.Agent, error) {
	definition, err := f.reasoner.GenerateDynamicAgent(ctx, spec, taskContext)
	if err != nil {
		log.Printf("[agent] dynamic agent generation failed, using fallback: %v", err)
		definition = reasoning.FallbackAgentDefinition(spec)
	}

	a := &models.Agent{
		ID:             f.newID(),
		TaskID:         taskID,
		Name:           definition.Name,
		Type:           models.AgentTypeDynamic,
		Role:           definition.Role,
		Capabilities:   dedupe(definition.Capabilities),
		Priority:       spec.Priority,
		PromptTemplate: definition.PromptTemplate,
		PreferredTools: definition.PreferredTools,
		Status:         models.AgentStatusActive,
		CreatedAt:      time.Now(),
	}
	if !a.Priority.Valid() {
		a.Priority = models.PriorityMedium
	}
	if err := f.persist(a); err != nil {
		return nil, err
	}

	log.Printf("[agent] created dynamic agent %s (%s) for task %s", a.Name, a.ID, taskID)
	return a, nil
}

// ExecuteAgent loads a persisted agent by ID and runs one full
// reasoning, tool, and validation cycle, marking the record completed or
// failed. A result map is always returned once the agent is loaded;
// internal errors and panics are captured in it rather than propagated.
func (f *Factory) ExecuteAgent(ctx context.Context, agentID, input, taskContext string) (result map[string]any, err error) {
	if f.db == nil {
		return nil, fmt.Errorf("execute agent %s: no store configured", agentID)
	}
	a, loadErr := f.db.GetAgent(agentID)
	if loadErr != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, loadErr)
	}
	if a == nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, ErrAgentNotFound)
	}

	a.Status = models.AgentStatusActive
	rt := f.Runtime(a)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] %s panicked during execution: %v", a.Name, r)
			rt.MarkCompleted(false)
			result = map[string]any{
				"agent_id":   a.ID,
				"agent_name": a.Name,
				"success":    false,
				"output":     fmt.Sprintf("agent crashed: %v", r),
			}
			err = nil
		}
	}()

	result = rt.Execute(ctx, input, taskContext)
	success, _ := result["success"].(bool)
	rt.MarkCompleted(success)
	return result, nil
}

// dedupe removes duplicate entries, keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Runtime builds an execution runtime around an agent.
func (f *Factory) Runtime(a *models.Agent) *Runtime {
	return &Runtime{
		agent:      a,
		registry:   f.registry,
		executor:   f.executor,
		reasoner:   f.reasoner,
		db:         f.db,
		historyCap: f.historyCap,
	}
}

func (f *Factory) persist(a *models.Agent) error {
	if f.db == nil {
		return nil
	}
	if err := f.db.CreateAgent(a); err != nil {
		return fmt.Errorf("persist agent %s: %w", a.ID, err)
	}
	return nil
}

func (f *Factory) newID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), f.entropy).String()
}
