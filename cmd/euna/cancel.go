package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/euna/internal/orchestrator"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel an in-flight task",
	Long: `Cancel a task that is still tracked by the orchestrator.

Cancellation is cooperative: the task and its still-active agents are marked
cancelled, but tool or reasoning calls already dispatched are not aborted.
Tasks that already reached a terminal status report not found.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	taskID := args[0]
	if err := a.orchestrator.Cancel(taskID); err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			fmt.Printf("Task %s is not tracked in this process; nothing to cancel.\n", taskID)
			return nil
		}
		return err
	}

	color.Yellow("Task %s cancelled", taskID)
	return nil
}
