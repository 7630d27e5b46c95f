package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/euna/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Euna configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/euna/config.yaml
Project-specific overrides can be placed in .euna.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if key, err := config.GetAPIKey(cfg); err == nil {
		apiKeyDisplay = fmt.Sprintf("%s (from %s)", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("anthropic.max_retries: %d\n", cfg.Anthropic.MaxRetries)
	fmt.Printf("anthropic.retry_base_delay: %s\n", cfg.Anthropic.RetryBaseDelay)
	fmt.Printf("orchestrator.grace_window: %s\n", cfg.Orchestrator.GraceWindow)
	fmt.Printf("orchestrator.agent_history_cap: %d\n", cfg.Orchestrator.AgentHistoryCap)
	fmt.Printf("workflow.default_timeout: %s\n", cfg.Workflow.DefaultTimeout)
	fmt.Printf("workflow.max_concurrent_tasks: %d\n", cfg.Workflow.MaxConcurrentTasks)
	fmt.Printf("tools.history_cap: %d\n", cfg.Tools.HistoryCap)
	fmt.Printf("tools.http_timeout: %s\n", cfg.Tools.HTTPTimeout)
	fmt.Printf("tools.search_endpoint: %s\n", cfg.Tools.SearchEndpoint)
	fmt.Printf("store.path: %s\n", storePathDisplay(cfg))
}

func storePathDisplay(cfg *config.Config) string {
	if cfg.Store.Path == "" {
		return config.DefaultStorePath() + " (default)"
	}
	return cfg.Store.Path
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "anthropic.max_retries":
		return strconv.Itoa(cfg.Anthropic.MaxRetries), nil
	case "anthropic.retry_base_delay":
		return cfg.Anthropic.RetryBaseDelay.String(), nil
	case "orchestrator.grace_window":
		return cfg.Orchestrator.GraceWindow.String(), nil
	case "orchestrator.agent_history_cap":
		return strconv.Itoa(cfg.Orchestrator.AgentHistoryCap), nil
	case "workflow.default_timeout":
		return cfg.Workflow.DefaultTimeout.String(), nil
	case "workflow.max_concurrent_tasks":
		return strconv.Itoa(cfg.Workflow.MaxConcurrentTasks), nil
	case "tools.history_cap":
		return strconv.Itoa(cfg.Tools.HistoryCap), nil
	case "tools.http_timeout":
		return cfg.Tools.HTTPTimeout.String(), nil
	case "tools.search_endpoint":
		return cfg.Tools.SearchEndpoint, nil
	case "store.path":
		return storePathDisplay(cfg), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Anthropic.MaxTokens = n
	case "anthropic.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Anthropic.MaxRetries = n
	case "anthropic.retry_base_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry_base_delay: %w", err)
		}
		cfg.Anthropic.RetryBaseDelay = d
	case "orchestrator.grace_window":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for grace_window: %w", err)
		}
		cfg.Orchestrator.GraceWindow = d
	case "orchestrator.agent_history_cap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for agent_history_cap: %w", err)
		}
		cfg.Orchestrator.AgentHistoryCap = n
	case "workflow.default_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for default_timeout: %w", err)
		}
		cfg.Workflow.DefaultTimeout = d
	case "workflow.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent_tasks: %w", err)
		}
		cfg.Workflow.MaxConcurrentTasks = n
	case "tools.history_cap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for history_cap: %w", err)
		}
		cfg.Tools.HistoryCap = n
	case "tools.http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for http_timeout: %w", err)
		}
		cfg.Tools.HTTPTimeout = d
	case "tools.search_endpoint":
		cfg.Tools.SearchEndpoint = value
	case "store.path":
		cfg.Store.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
