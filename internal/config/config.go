// Package config handles configuration loading and management for Euna.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for Euna.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Tools        ToolsConfig        `mapstructure:"tools"`
	Store        StoreConfig        `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings for the reasoning service.
type AnthropicConfig struct {
	// APIKey authenticates requests. Empty means offline fallback reasoning.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier used for reasoning calls.
	Model string `mapstructure:"model"`
	// MaxTokens caps the response size per reasoning call.
	MaxTokens int `mapstructure:"max_tokens"`
	// MaxRetries bounds retry attempts on transient API failures.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// OrchestratorConfig holds task orchestration settings.
type OrchestratorConfig struct {
	// GraceWindow is how long a terminal task stays in memory before eviction.
	GraceWindow time.Duration `mapstructure:"grace_window"`
	// AgentHistoryCap is the per-agent execution history retention.
	AgentHistoryCap int `mapstructure:"agent_history_cap"`
}

// WorkflowConfig holds task workflow settings.
type WorkflowConfig struct {
	// DefaultTimeout is the workflow deadline when none is declared.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// MaxConcurrentTasks caps the immediate-execution scheduling bucket.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
}

// ToolsConfig holds tool executor settings.
type ToolsConfig struct {
	// HistoryCap bounds the executor's completed-invocation history.
	HistoryCap int `mapstructure:"history_cap"`
	// HTTPTimeout applies to tool capabilities that make network calls.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// SearchEndpoint is the web search API base URL.
	SearchEndpoint string `mapstructure:"search_endpoint"`
}

// StoreConfig holds task store settings.
type StoreConfig struct {
	// Path is the SQLite database path. Empty selects the default location.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, EUNA_API_KEY)
// 2. Project config (.euna.yaml in current directory or parent)
// 3. User config (~/.config/euna/config.yaml)
// 4. Built-in defaults
// A .env file in the working directory is loaded first, if present.
func Load() (*Config, error) {
	// Populate the environment before viper binds env vars.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "EUNA_API_KEY")
	v.BindEnv("anthropic.model", "EUNA_MODEL")
	v.BindEnv("store.path", "EUNA_DB_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Store.Path = expandEnv(cfg.Store.Path)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Store.Path = expandEnv(cfg.Store.Path)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("anthropic.max_retries", cfg.Anthropic.MaxRetries)
	v.Set("anthropic.retry_base_delay", cfg.Anthropic.RetryBaseDelay.String())
	v.Set("orchestrator.grace_window", cfg.Orchestrator.GraceWindow.String())
	v.Set("orchestrator.agent_history_cap", cfg.Orchestrator.AgentHistoryCap)
	v.Set("workflow.default_timeout", cfg.Workflow.DefaultTimeout.String())
	v.Set("workflow.max_concurrent_tasks", cfg.Workflow.MaxConcurrentTasks)
	v.Set("tools.history_cap", cfg.Tools.HistoryCap)
	v.Set("tools.http_timeout", cfg.Tools.HTTPTimeout.String())
	v.Set("tools.search_endpoint", cfg.Tools.SearchEndpoint)
	v.Set("store.path", cfg.Store.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() string {
	return filepath.Join(getUserDataDir(), "euna.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Reasoning defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.max_retries", 3)
	v.SetDefault("anthropic.retry_base_delay", "1s")

	// Orchestrator defaults
	v.SetDefault("orchestrator.grace_window", "5m")
	v.SetDefault("orchestrator.agent_history_cap", 10)

	// Workflow defaults
	v.SetDefault("workflow.default_timeout", "60m")
	v.SetDefault("workflow.max_concurrent_tasks", 10)

	// Tool defaults
	v.SetDefault("tools.history_cap", 200)
	v.SetDefault("tools.http_timeout", "30s")
	v.SetDefault("tools.search_endpoint", "https://api.duckduckgo.com")

	// Store defaults
	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for Euna.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "euna")
	}

	// Fall back to ~/.config/euna
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "euna")
	}
	return filepath.Join(home, ".config", "euna")
}

// getUserDataDir returns the XDG data directory for Euna.
func getUserDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "euna")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "euna")
	}
	return filepath.Join(home, ".local", "share", "euna")
}

// findProjectConfig searches for .euna.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".euna.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			APIKey:         "",
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      4096,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		Orchestrator: OrchestratorConfig{
			GraceWindow:     5 * time.Minute,
			AgentHistoryCap: 10,
		},
		Workflow: WorkflowConfig{
			DefaultTimeout:     60 * time.Minute,
			MaxConcurrentTasks: 10,
		},
		Tools: ToolsConfig{
			HistoryCap:     200,
			HTTPTimeout:    30 * time.Second,
			SearchEndpoint: "https://api.duckduckgo.com",
		},
		Store: StoreConfig{
			Path: "",
		},
	}
}
