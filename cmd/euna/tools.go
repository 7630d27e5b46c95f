package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog",
	Long:  `Display every registered tool with its category and parameters.`,
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	catalog := a.registry.List()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	bold := color.New(color.Bold)
	bold.Printf("Registered tools (%d):\n", len(names))
	for _, name := range names {
		info := catalog[name]
		fmt.Printf("  %-16s [%s] %s\n", name, info.Category, info.Description)
		if len(info.Parameters.Required) > 0 {
			fmt.Printf("  %-16s required: %s\n", "", strings.Join(info.Parameters.Required, ", "))
		}
		if len(info.Parameters.Optional) > 0 {
			fmt.Printf("  %-16s optional: %s\n", "", strings.Join(info.Parameters.Optional, ", "))
		}
	}
	return nil
}
