package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Supervisor.PollInterval != time.Second {
		t.Errorf("poll interval = %v, want 1s", cfg.Supervisor.PollInterval)
	}
	if cfg.Supervisor.IdleThreshold != 15*time.Minute {
		t.Errorf("idle threshold = %v, want 15m", cfg.Supervisor.IdleThreshold)
	}
	if cfg.Scheduler.TickInterval != 60*time.Second {
		t.Errorf("scheduler tick = %v, want 60s", cfg.Scheduler.TickInterval)
	}
	if cfg.Scanner.ScanInterval != 6*time.Hour {
		t.Errorf("scan interval = %v, want 6h", cfg.Scanner.ScanInterval)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"signal": {"enabled": true, "baseUrl": "http://signal:9090"},
		"scheduler": {"enabled": false}
	}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOTHERD_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Signal.BaseURL != "http://signal:9090" {
		t.Errorf("signal baseUrl = %q", cfg.Signal.BaseURL)
	}
	if cfg.Scheduler.Enabled {
		t.Error("scheduler should be disabled by file")
	}
	// Untouched groups keep defaults.
	if cfg.Scanner.TurnsToScan != 100 {
		t.Errorf("turnsToScan = %d, want default 100", cfg.Scanner.TurnsToScan)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"completion": {"model": "file-model"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOTHERD_CONFIG", path)
	t.Setenv("BOTHERD_COMPLETION_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Completion.Model != "env-model" {
		t.Errorf("model = %q, want env-model", cfg.Completion.Model)
	}
}

func TestEnvOverridesSupervisor(t *testing.T) {
	t.Setenv("BOTHERD_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("BOTHERD_SUPERVISOR_POLL_INTERVAL", "250ms")
	t.Setenv("BOTHERD_SUPERVISOR_IDLE_CHANCE", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Supervisor.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", cfg.Supervisor.PollInterval)
	}
	if cfg.Supervisor.IdleChance != 0.5 {
		t.Errorf("idle chance = %v, want 0.5", cfg.Supervisor.IdleChance)
	}
}
