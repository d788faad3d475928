package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".botherd"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("BOTHERD_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // fall back to defaults if home cannot be resolved
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("BOTHERD_PATHS", &cfg.Paths)
	envconfig.Process("BOTHERD_SIGNAL", &cfg.Signal)
	envconfig.Process("BOTHERD_SLACK", &cfg.Slack)
	envconfig.Process("BOTHERD_COMPLETION", &cfg.Completion)
	envconfig.Process("BOTHERD_SUPERVISOR", &cfg.Supervisor)
	envconfig.Process("BOTHERD_SCHEDULER", &cfg.Scheduler)
	envconfig.Process("BOTHERD_SCANNER", &cfg.Scanner)
	envconfig.Process("BOTHERD_EVENTS", &cfg.Events)

	// Fallback for the completion API key.
	if cfg.Completion.APIKey == "" {
		if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
			cfg.Completion.APIKey = key
		}
	}

	expandHome(&cfg.Paths.DataDir)
	expandHome(&cfg.Paths.DBPath)

	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func expandHome(p *string) {
	if strings.HasPrefix(*p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			*p = filepath.Join(home, (*p)[1:])
		}
	}
}
