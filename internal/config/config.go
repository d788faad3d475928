// Package config provides configuration types and loading for botherd.
package config

import "time"

// Config is the root configuration struct.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Signal     SignalConfig     `json:"signal"`
	Slack      SlackConfig      `json:"slack"`
	Completion CompletionConfig `json:"completion"`
	Supervisor SupervisorConfig `json:"supervisor"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Scanner    ScannerConfig    `json:"scanner"`
	Events     EventsConfig     `json:"events"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// SignalConfig configures the signal-cli-rest-api transport.
type SignalConfig struct {
	Enabled        bool          `json:"enabled" envconfig:"ENABLED"`
	BaseURL        string        `json:"baseUrl" envconfig:"BASE_URL"`
	ReceiveTimeout time.Duration `json:"receiveTimeout"`
	SendTimeout    time.Duration `json:"sendTimeout"`
}

// SlackConfig configures the Slack transport.
type SlackConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken string `json:"botToken" envconfig:"BOT_TOKEN"`
}

// CompletionConfig configures the completion service client.
type CompletionConfig struct {
	APIBase string        `json:"apiBase" envconfig:"API_BASE"`
	APIKey  string        `json:"apiKey" envconfig:"API_KEY"`
	Model   string        `json:"model" envconfig:"MODEL"`
	Timeout time.Duration `json:"timeout"`
}

// SupervisorConfig groups agent poll-loop and idle-checker settings.
type SupervisorConfig struct {
	PollInterval    time.Duration `json:"pollInterval" envconfig:"POLL_INTERVAL"`
	IdleTick        time.Duration `json:"idleTick" envconfig:"IDLE_TICK"`
	IdleThreshold   time.Duration `json:"idleThreshold" envconfig:"IDLE_THRESHOLD"`
	IdleCheckEvery  time.Duration `json:"idleCheckEvery" envconfig:"IDLE_CHECK_EVERY"`
	IdleChance      float64       `json:"idleChance" envconfig:"IDLE_CHANCE"`
	EmptyRetryLimit int           `json:"emptyRetryLimit" envconfig:"EMPTY_RETRY_LIMIT"`
}

// SchedulerConfig holds trigger scheduler settings.
type SchedulerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	TickInterval time.Duration `json:"tickInterval"`
}

// ScannerConfig holds memory scanner settings.
type ScannerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	ScanInterval time.Duration `json:"scanInterval"`
	TurnsToScan  int           `json:"turnsToScan"`
	StartupDelay time.Duration `json:"startupDelay"`
}

// EventsConfig configures the optional Kafka activity mirror.
// Disabled unless Brokers is set.
type EventsConfig struct {
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// DefaultConfig returns a config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.botherd",
			DBPath:  "~/.botherd/botherd.db",
		},
		Signal: SignalConfig{
			Enabled:        true,
			BaseURL:        "http://localhost:8080",
			ReceiveTimeout: 30 * time.Second,
			SendTimeout:    30 * time.Second,
		},
		Completion: CompletionConfig{
			APIBase: "https://openrouter.ai/api/v1",
			Timeout: 120 * time.Second,
		},
		Supervisor: SupervisorConfig{
			PollInterval:    time.Second,
			IdleTick:        60 * time.Second,
			IdleThreshold:   15 * time.Minute,
			IdleCheckEvery:  5 * time.Minute,
			IdleChance:      0.10,
			EmptyRetryLimit: 1,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TickInterval: 60 * time.Second,
		},
		Scanner: ScannerConfig{
			Enabled:      true,
			ScanInterval: 6 * time.Hour,
			TurnsToScan:  100,
			StartupDelay: time.Minute,
		},
		Events: EventsConfig{
			Topic: "botherd.activity",
		},
	}
}
