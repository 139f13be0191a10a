package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_DefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Scheduler.Concurrency != 3 {
		t.Errorf("Scheduler.Concurrency = %d, want 3", cfg.Scheduler.Concurrency)
	}
	if cfg.Scheduler.TickInterval != 10*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 10s", cfg.Scheduler.TickInterval)
	}
	if cfg.Recovery.ContinueThreshold != 3*time.Minute {
		t.Errorf("Recovery.ContinueThreshold = %v, want 3m", cfg.Recovery.ContinueThreshold)
	}
	if cfg.Recovery.RestartThreshold != 5*time.Minute {
		t.Errorf("Recovery.RestartThreshold = %v, want 5m", cfg.Recovery.RestartThreshold)
	}
	if cfg.Recovery.RestartBound != 2 {
		t.Errorf("Recovery.RestartBound = %d, want 2", cfg.Recovery.RestartBound)
	}
	if cfg.LogParser.MaxFileSize != 50*1024*1024 {
		t.Errorf("LogParser.MaxFileSize = %d, want 50MiB", cfg.LogParser.MaxFileSize)
	}
	if cfg.LogParser.MaxFiles != 5 {
		t.Errorf("LogParser.MaxFiles = %d, want 5", cfg.LogParser.MaxFiles)
	}
}

func TestLoader_ExplicitConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cursorflow.yaml")
	contents := "scheduler:\n  concurrency: 7\nrecovery:\n  restart_bound: 0\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(configPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scheduler.Concurrency != 7 {
		t.Errorf("Scheduler.Concurrency = %d, want 7", cfg.Scheduler.Concurrency)
	}
	if cfg.Recovery.RestartBound != 0 {
		t.Errorf("Recovery.RestartBound = %d, want 0", cfg.Recovery.RestartBound)
	}
	// Untouched keys still carry defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoader_MissingExplicitConfigFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigFile("/nonexistent/cursorflow.yaml").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scheduler.Concurrency != 3 {
		t.Errorf("Scheduler.Concurrency = %d, want 3", cfg.Scheduler.Concurrency)
	}
}

func TestLoader_EnvironmentOverride(t *testing.T) {
	t.Setenv("CURSORFLOW_EXECUTOR_NAME", "codex")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Executor.Name != "codex" {
		t.Errorf("Executor.Name = %q, want codex (from env)", cfg.Executor.Name)
	}
}

func TestResolvePathRelativeTo(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{"relative", ".worktrees", "/project", "/project/.worktrees"},
		{"absolute unchanged", "/abs/path", "/project", "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolvePathRelativeTo(tt.path, tt.baseDir)
			if got != tt.want {
				t.Errorf("resolvePathRelativeTo(%q, %q) = %q, want %q", tt.path, tt.baseDir, got, tt.want)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(old)
	})
}
