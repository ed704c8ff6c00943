package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"oneof=development production test"`
	Server      ServerConfig    `toml:"server"`
	Portal      PortalConfig    `toml:"portal"`
	Browser     BrowserConfig   `toml:"browser"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Storage     StorageConfig   `toml:"storage"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

// PortalConfig describes the intranet portal being scraped. The domain and
// login credentials are environment-sourced secrets (see Secrets), only the
// path layout and HTTP behavior live here.
type PortalConfig struct {
	MenuPath       string        `toml:"menu_path" validate:"required,startswith=/"`
	LoginPath      string        `toml:"login_path" validate:"required,startswith=/"`
	RequestDelay   time.Duration `toml:"request_delay"`   // Minimum spacing between direct portal HTTP requests
	RequestTimeout time.Duration `toml:"request_timeout"` // Timeout for the asset download request
}

// BrowserConfig selects and tunes the headless browser profile.
// Profile "server" is the sandboxed resource-constrained profile for
// constrained hosts; "desktop" points at a locally installed Chrome with
// OS-dependent path selection.
type BrowserConfig struct {
	Profile           string        `toml:"profile" validate:"oneof=server desktop"`
	ExecPath          string        `toml:"exec_path"` // Explicit Chrome binary, overrides profile detection
	UserAgent         string        `toml:"user_agent"`
	Headless          bool          `toml:"headless"`
	NoSandbox         bool          `toml:"no_sandbox"`
	DisableGPU        bool          `toml:"disable_gpu"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Default per-navigation ceiling
}

// PipelineConfig bounds every wait in the scrape pipeline. There is no
// unbounded wait anywhere in the flow.
type PipelineConfig struct {
	MaxDuration       time.Duration `toml:"max_duration"`        // Hard ceiling for a full run
	LoginButtonWait   time.Duration `toml:"login_button_wait"`   // Login trigger control render wait
	CredentialsWait   time.Duration `toml:"credentials_wait"`    // Credential form render wait
	SubmitWait        time.Duration `toml:"submit_wait"`         // Post-submit navigation wait
	LandingWait       time.Duration `toml:"landing_wait"`        // Landing verification ceiling
	LoginMaxAttempts  int           `toml:"login_max_attempts" validate:"gt=0"`
	LoginRetryPause   time.Duration `toml:"login_retry_pause"`
	StateTimeout      time.Duration `toml:"state_timeout"`       // Injected state poll ceiling
	StatePollInterval time.Duration `toml:"state_poll_interval"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`  // Diagnostic page-readiness sampling
}

type StorageConfig struct {
	Badger       BadgerConfig `toml:"badger"`
	Bucket       string       `toml:"bucket" validate:"required"`
	ObjectPrefix string       `toml:"object_prefix" validate:"required"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SchedulerConfig controls the optional in-process daily scrape trigger.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values.
// The pipeline timeouts mirror the portal's observed rendering behavior and
// should not normally need tuning.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Portal: PortalConfig{
			MenuPath:       "/food/image",
			LoginPath:      "/login",
			RequestDelay:   1 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Profile:           "server",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:          true,
			NoSandbox:         true,
			DisableGPU:        true,
			NavigationTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxDuration:       60 * time.Second,
			LoginButtonWait:   10 * time.Second,
			CredentialsWait:   15 * time.Second,
			SubmitWait:        60 * time.Second,
			LandingWait:       45 * time.Second,
			LoginMaxAttempts:  3,
			LoginRetryPause:   3 * time.Second,
			StateTimeout:      30 * time.Second,
			StatePollInterval: 1 * time.Second,
			HeartbeatInterval: 5 * time.Second,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Bucket:       "food-menus",
			ObjectPrefix: "menus",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false, // Disabled by default - external trigger drives the pipeline
			Schedule: "30 10 * * 1-5",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the configuration using go-playground/validator.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MENUFEED_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MENUFEED_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MENUFEED_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MENUFEED_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if bucket := os.Getenv("MENUFEED_STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}

	// Browser configuration
	if profile := os.Getenv("MENUFEED_BROWSER_PROFILE"); profile != "" {
		config.Browser.Profile = profile
	}
	if execPath := os.Getenv("MENUFEED_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if userAgent := os.Getenv("MENUFEED_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}

	// Scheduler configuration
	if enabled := os.Getenv("MENUFEED_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("MENUFEED_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Logging configuration
	if level := os.Getenv("MENUFEED_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
