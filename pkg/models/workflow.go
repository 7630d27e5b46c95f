package models

import "time"

// WorkflowStep is one step definition in a task workflow.
type WorkflowStep struct {
	// Name identifies the step within the workflow.
	Name string `json:"name" yaml:"name"`
	// Description explains what the step should accomplish.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tool optionally names the tool this step should invoke.
	Tool string `json:"tool,omitempty" yaml:"tool,omitempty"`
	// Params are the parameters for the step's tool, if any.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// StepResult records the outcome of applying one workflow step.
type StepResult struct {
	// StepIndex is the zero-based index of the step this result belongs to.
	StepIndex int `json:"step_index"`
	// Name is the step name copied from the definition.
	Name string `json:"name"`
	// Success reports whether the step's agent result was successful.
	Success bool `json:"success"`
	// Result is the raw agent result recorded for the step.
	Result map[string]any `json:"result,omitempty"`
	// RecordedAt is when the result was applied.
	RecordedAt time.Time `json:"recorded_at"`
}

// TaskWorkflow is an ordered, dependency- and timeout-aware sequence of
// steps attached to a task. CurrentStep equals len(StepResults) after each
// successful application; the workflow completes only when CurrentStep
// reaches len(Steps).
type TaskWorkflow struct {
	// TaskID is the task this workflow belongs to.
	TaskID string `json:"task_id"`
	// Steps is the ordered list of step definitions.
	Steps []WorkflowStep `json:"steps"`
	// CurrentStep is the index of the next step to apply.
	CurrentStep int `json:"current_step"`
	// StepResults holds one entry per applied step, in order.
	StepResults []StepResult `json:"step_results"`
	// Status mirrors the owning task's status values.
	Status TaskStatus `json:"status"`
	// DependsOn lists task IDs that must complete before this workflow runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Deadline is the workflow timeout, after which progress reports timed out.
	Deadline time.Time `json:"deadline"`
	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"created_at"`
}

// Completed returns true if every step has been applied.
func (w *TaskWorkflow) Completed() bool {
	return w.CurrentStep == len(w.Steps)
}

// TimedOut reports whether the workflow deadline has passed as of now.
func (w *TaskWorkflow) TimedOut(now time.Time) bool {
	return now.After(w.Deadline)
}
