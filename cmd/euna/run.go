package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/euna/internal/orchestrator"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/internal/workflow"
	"github.com/ShayCichocki/euna/pkg/models"
)

var (
	runPriority     string
	runSession      string
	runWorkflowFile string
)

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Submit a task and run it to completion",
	Long: `Submit a task to the orchestrator and wait for the result.

The input is analyzed, agents are created and executed by priority, and the
synthesized answer is printed when the task completes.

With --workflow, the steps from the YAML definition file are additionally run
as a tool chain with progress reporting. A definition looks like:

  steps:
    - name: fetch
      tool: web_search
      params:
        query: golang release notes
    - name: digest
      tool: text_summarizer
      params:
        text: $context.step_0_result
  depends_on: []
  timeout_minutes: 30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runPriority, "priority", "p", "medium", "Task priority (low, medium, high, urgent)")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID to group related tasks")
	runCmd.Flags().StringVarP(&runWorkflowFile, "workflow", "w", "", "YAML workflow definition to run alongside the task")
}

func runRun(cmd *cobra.Command, args []string) error {
	input := strings.Join(args, " ")

	priority := models.TaskPriority(runPriority)
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q (use low, medium, high, or urgent)", runPriority)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	submitted, err := a.orchestrator.Submit(ctx, input, runSession, priority)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}

	bold := color.New(color.Bold)
	bold.Printf("Task %s submitted\n", submitted.TaskID)
	fmt.Printf("  Complexity: %s\n", submitted.Analysis.Complexity)
	fmt.Printf("  Estimated duration: %s\n", submitted.Analysis.EstimatedDuration)
	for _, suggestion := range submitted.Analysis.SuggestedAgents {
		fmt.Printf("  Agent: %s (%s, %s priority)\n", suggestion.Name, suggestion.Type, suggestion.Priority)
	}

	if runWorkflowFile != "" {
		if err := runWorkflow(ctx, a, submitted.TaskID); err != nil {
			return err
		}
	}

	view, err := waitForResult(a, submitted.TaskID)
	if err != nil {
		return err
	}
	printOutcome(view)
	return nil
}

// runWorkflow attaches the YAML-defined steps to the task and executes them
// as a tool chain, recording each step against the workflow manager.
func runWorkflow(ctx context.Context, a *app, taskID string) error {
	data, err := os.ReadFile(runWorkflowFile)
	if err != nil {
		return fmt.Errorf("read workflow file: %w", err)
	}
	var definition workflow.Definition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return fmt.Errorf("parse workflow file: %w", err)
	}

	w, err := a.workflows.CreateWorkflow(taskID, definition)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}

	report, err := a.workflows.CheckDependencies(taskID)
	if err != nil {
		return err
	}
	if !report.Satisfied {
		color.Yellow("Workflow waiting on dependencies: %s", strings.Join(report.Pending, ", "))
		return nil
	}

	steps := make([]tools.ChainStep, len(w.Steps))
	for i, step := range w.Steps {
		steps[i] = tools.ChainStep{Tool: step.Tool, Params: step.Params}
	}

	results := a.executor.ExecuteChain(ctx, "workflow:"+taskID, steps)
	for _, result := range results {
		record := map[string]any{
			"success": result.Success,
			"tool":    result.ToolName,
			"result":  result.Result,
			"error":   result.Error,
			"skipped": result.Skipped,
		}
		if err := a.workflows.RecordStepResult(taskID, result.Step, record); err != nil {
			return fmt.Errorf("record step %d: %w", result.Step, err)
		}

		progress, err := a.workflows.Progress(taskID)
		if err != nil {
			return err
		}
		fmt.Printf("  Step %d/%d done (%.0f%%)\n",
			progress.CurrentStep, progress.TotalSteps, progress.Percentage*100)
	}
	return nil
}

// waitForResult polls until the task reaches a terminal status.
func waitForResult(a *app, taskID string) (*orchestrator.StatusView, error) {
	spinner := color.New(color.FgCyan)
	spinner.Println("Working...")

	for {
		view, err := a.orchestrator.Status(taskID)
		if err != nil {
			return nil, err
		}
		if view.Task.Status.Terminal() {
			return view, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func printOutcome(view *orchestrator.StatusView) {
	fmt.Println()
	switch view.Task.Status {
	case models.TaskStatusCompleted:
		color.Green("Task completed")
	case models.TaskStatusFailed:
		color.Red("Task failed: %s", view.Task.Error)
		return
	case models.TaskStatusCancelled:
		color.Yellow("Task cancelled")
		return
	}

	if view.FinalResult != nil {
		fmt.Println()
		fmt.Println(view.FinalResult.FinalAnswer)
		if len(view.FinalResult.KeyInsights) > 0 {
			fmt.Println()
			color.New(color.Bold).Println("Key insights:")
			for _, insight := range view.FinalResult.KeyInsights {
				fmt.Printf("  - %s\n", insight)
			}
		}
		fmt.Printf("\nConfidence: %.2f\n", view.FinalResult.ConfidenceScore)
	}
}
