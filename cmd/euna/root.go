package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "euna",
	Short: "Task and agent orchestration engine",
	Long: `Euna turns natural-language tasks into orchestrated agent work.

Submit a task and Euna analyzes it, spins up specialized agents
(summarization, search, coding, scheduling, or dynamically generated ones),
runs their tool plans with priority ordering and parallel execution, and
synthesizes a final answer.

Core capabilities:
- Task analysis and per-agent action planning
- Default and dynamically generated agents
- Tool chains with conditions, context propagation, and parallel batches
- Step workflows with dependencies, deadlines, and progress reporting
- Durable task, agent, and log storage`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
