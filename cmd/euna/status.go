package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/euna/internal/orchestrator"
	"github.com/ShayCichocki/euna/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show task status",
	Long: `Display task state.

With a task ID, shows that task's status, agents, result, and log timeline.
Without arguments, lists recent tasks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		return displayRecentTasks(a)
	}
	return displayTask(a, args[0])
}

func displayRecentTasks(a *app) error {
	tasks, err := a.db.RecentTasks(10)
	if err != nil {
		return fmt.Errorf("list recent tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks yet. Run 'euna run <task>' to start.")
		return nil
	}

	color.New(color.Bold).Println("Recent Tasks:")
	for _, task := range tasks {
		fmt.Printf("  %s  %-12s %-8s %s (%s ago)\n",
			task.ID, statusColor(task.Status), task.Priority,
			truncateInput(task.Input), formatDuration(time.Since(task.CreatedAt)))
	}
	return nil
}

func displayTask(a *app, taskID string) error {
	view, err := a.orchestrator.Status(taskID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			fmt.Printf("Task %s not found.\n", taskID)
			return nil
		}
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("Task %s\n", view.Task.ID)
	fmt.Printf("  Status: %s\n", statusColor(view.Task.Status))
	fmt.Printf("  Priority: %s\n", view.Task.Priority)
	fmt.Printf("  Input: %s\n", view.Task.Input)
	fmt.Printf("  Created: %s ago\n", formatDuration(time.Since(view.Task.CreatedAt)))
	if view.Task.Error != "" {
		color.Red("  Error: %s", view.Task.Error)
	}

	if len(view.Agents) > 0 {
		fmt.Println()
		bold.Println("Agents:")
		for _, agent := range view.Agents {
			fmt.Printf("  %s (%s, %s): %s\n", agent.Name, agent.Type, agent.Priority, agent.Status)
		}
	}

	if view.FinalResult != nil && view.FinalResult.FinalAnswer != "" {
		fmt.Println()
		bold.Println("Result:")
		fmt.Printf("  %s\n", view.FinalResult.FinalAnswer)
		fmt.Printf("  Confidence: %.2f\n", view.FinalResult.ConfidenceScore)
	}

	if len(view.Logs) > 0 {
		fmt.Println()
		bold.Println("Timeline:")
		for _, entry := range view.Logs {
			fmt.Printf("  %s [%s] %s\n",
				entry.CreatedAt.Format("15:04:05"), entry.Level, entry.Message)
		}
	}
	return nil
}

func statusColor(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusCompleted:
		return color.GreenString(string(status))
	case models.TaskStatusFailed:
		return color.RedString(string(status))
	case models.TaskStatusCancelled, models.TaskStatusPaused:
		return color.YellowString(string(status))
	case models.TaskStatusInProgress:
		return color.CyanString(string(status))
	default:
		return string(status)
	}
}

func truncateInput(input string) string {
	if len(input) > 48 {
		return input[:48] + "..."
	}
	return input
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
