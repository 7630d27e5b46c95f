package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", cfg.Anthropic.MaxTokens)
	}

	if cfg.Anthropic.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.Anthropic.MaxRetries)
	}

	if cfg.Orchestrator.GraceWindow != 5*time.Minute {
		t.Errorf("expected grace window 5m, got %v", cfg.Orchestrator.GraceWindow)
	}

	if cfg.Orchestrator.AgentHistoryCap != 10 {
		t.Errorf("expected agent history cap 10, got %d", cfg.Orchestrator.AgentHistoryCap)
	}

	if cfg.Workflow.DefaultTimeout != 60*time.Minute {
		t.Errorf("expected workflow default timeout 60m, got %v", cfg.Workflow.DefaultTimeout)
	}

	if cfg.Workflow.MaxConcurrentTasks != 10 {
		t.Errorf("expected max concurrent tasks 10, got %d", cfg.Workflow.MaxConcurrentTasks)
	}

	if cfg.Tools.HistoryCap != 200 {
		t.Errorf("expected tool history cap 200, got %d", cfg.Tools.HistoryCap)
	}

	if cfg.Tools.HTTPTimeout != 30*time.Second {
		t.Errorf("expected http timeout 30s, got %v", cfg.Tools.HTTPTimeout)
	}
}

func TestLoadFromPath(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-test
  max_tokens: 2048
  max_retries: 5
orchestrator:
  grace_window: 10m
  agent_history_cap: 20
workflow:
  default_timeout: 30m
  max_concurrent_tasks: 4
tools:
  history_cap: 50
  http_timeout: 15s
store:
  path: /tmp/euna-test.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if cfg.Anthropic.Model != "claude-test" {
		t.Errorf("expected model 'claude-test', got %q", cfg.Anthropic.Model)
	}

	if cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("expected max_tokens 2048, got %d", cfg.Anthropic.MaxTokens)
	}

	if cfg.Orchestrator.GraceWindow != 10*time.Minute {
		t.Errorf("expected grace window 10m, got %v", cfg.Orchestrator.GraceWindow)
	}

	if cfg.Workflow.MaxConcurrentTasks != 4 {
		t.Errorf("expected max concurrent tasks 4, got %d", cfg.Workflow.MaxConcurrentTasks)
	}

	if cfg.Tools.HistoryCap != 50 {
		t.Errorf("expected tool history cap 50, got %d", cfg.Tools.HistoryCap)
	}

	if cfg.Store.Path != "/tmp/euna-test.db" {
		t.Errorf("expected store path '/tmp/euna-test.db', got %q", cfg.Store.Path)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	// A config file that sets nothing keeps all defaults
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("anthropic:\n  api_key: k\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Workflow.DefaultTimeout != 60*time.Minute {
		t.Errorf("expected default workflow timeout 60m, got %v", cfg.Workflow.DefaultTimeout)
	}
	if cfg.Tools.SearchEndpoint == "" {
		t.Error("expected non-empty default search endpoint")
	}
}

func TestExpandEnv(t *testing.T) {
	// Set environment variable
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/euna"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
