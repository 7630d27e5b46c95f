package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/euna/internal/agent"
	"github.com/ShayCichocki/euna/pkg/models"
)

var agentsTaskID string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents",
	Long: `List agents known to the engine.

Without flags, shows the built-in agent templates and any still-active
agents. With --task, shows every agent created for that task.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().StringVarP(&agentsTaskID, "task", "t", "", "Show agents for a specific task")
}

func runAgents(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	bold := color.New(color.Bold)

	if agentsTaskID != "" {
		agents, err := a.db.TaskAgents(agentsTaskID)
		if err != nil {
			return fmt.Errorf("list task agents: %w", err)
		}
		if len(agents) == 0 {
			fmt.Printf("No agents for task %s.\n", agentsTaskID)
			return nil
		}
		bold.Printf("Agents for task %s:\n", agentsTaskID)
		printAgents(agents)
		return nil
	}

	bold.Println("Agent templates:")
	for _, name := range agent.TemplateNames() {
		tpl := agent.TemplateFor(name)
		fmt.Printf("  %-16s %s\n", tpl.Name, tpl.Role)
		fmt.Printf("  %-16s capabilities: %v, tools: %v\n", "", tpl.Capabilities, tpl.PreferredTools)
	}

	active := models.AgentStatusActive
	agents, err := a.db.ListAgents(&active)
	if err != nil {
		return fmt.Errorf("list active agents: %w", err)
	}
	if len(agents) > 0 {
		fmt.Println()
		bold.Println("Active agents:")
		printAgents(agents)
	}
	return nil
}

func printAgents(agents []models.Agent) {
	for _, a := range agents {
		fmt.Printf("  %s  %-16s %-8s %-10s created %s ago\n",
			a.ID, a.Name, a.Type, a.Status, formatDuration(time.Since(a.CreatedAt)))
	}
}
