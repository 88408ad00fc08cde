package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Omics       OmicsConfig     `toml:"omics"`
	Launcher    LauncherConfig  `toml:"launcher"`
	Poller      PollerConfig    `toml:"poller"`
	Watcher     WatcherConfig   `toml:"watcher"`
	Notify      NotifyConfig    `toml:"notify"`
	Artifacts   ArtifactsConfig `toml:"artifacts"`
	Registry    RegistryConfig  `toml:"registry"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// OmicsConfig contains connection settings for the workflow-run service
type OmicsConfig struct {
	BaseURL        string        `toml:"base_url"`         // Workflow-run service endpoint
	APIToken       string        `toml:"api_token"`        // Bearer token for the service
	RequestTimeout time.Duration `toml:"request_timeout"`  // HTTP request timeout
	RateLimit      int           `toml:"rate_limit"`       // Client-side requests per second ceiling
}

// LauncherConfig controls launch pacing and throttling retry behavior.
// The workflow-run service enforces a hard request quota (observed as low
// as one start-run call per 10 seconds), so launches are strictly serial.
type LauncherConfig struct {
	InterLaunchInterval time.Duration `toml:"inter_launch_interval"` // Fixed wait between consecutive launches
	RetryBaseDelay      time.Duration `toml:"retry_base_delay"`      // Base delay for exponential backoff
	RetryMaxAttempts    int           `toml:"retry_max_attempts"`    // Attempts per job before giving up
	RetryJitter         time.Duration `toml:"retry_jitter"`          // Max random jitter added to each backoff
}

// PollerConfig controls the external poll loop that drives status checks
type PollerConfig struct {
	Interval  time.Duration `toml:"interval"`   // Wait between poll cycles
	MaxCycles int           `toml:"max_cycles"` // Poll cycles before the run is declared failed
}

// WatcherConfig controls the manifest drop-directory scanner
type WatcherConfig struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`      // Directory scanned for run_manifest.json files
	Schedule string `toml:"schedule"` // Cron schedule for scan cycles
}

// NotifyConfig controls final run report delivery
type NotifyConfig struct {
	WebhookURL     string        `toml:"webhook_url"`     // Optional one-shot POST target for run reports
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP timeout for webhook delivery
}

// ArtifactsConfig points at the workflow bundle store
type ArtifactsConfig struct {
	BaseURL        string        `toml:"base_url"`        // Artifact store endpoint for bundle uploads
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP timeout per upload attempt
}

// RegistryConfig supplies run-level defaults stored alongside workflow entries
type RegistryConfig struct {
	CatalogFile   string `toml:"catalog_file"`   // YAML catalog of workflow name:version entries
	ExecutionRole string `toml:"execution_role"` // Role reference passed on every start-run call
	ResourceGroup string `toml:"resource_group"` // Resource group runs are launched into
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Omics: OmicsConfig{
			BaseURL:        "",
			RequestTimeout: 30 * time.Second,
			RateLimit:      5,
		},
		Launcher: LauncherConfig{
			InterLaunchInterval: 10 * time.Second, // Quota is 0.1 TPS on start-run
			RetryBaseDelay:      1 * time.Second,
			RetryMaxAttempts:    5,
			RetryJitter:         1 * time.Second,
		},
		Poller: PollerConfig{
			Interval:  60 * time.Second,
			MaxCycles: 1440, // 24 hours at the default interval
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Dir:      "./manifests",
			Schedule: "*/1 * * * *", // Scan every minute
		},
		Notify: NotifyConfig{
			WebhookURL:     "",
			RequestTimeout: 15 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			BaseURL:        "",
			RequestTimeout: 5 * time.Minute,
		},
		Registry: RegistryConfig{
			CatalogFile: "./catalog.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files, environment variables override all files.
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

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STRAND_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("STRAND_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STRAND_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("STRAND_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if baseURL := os.Getenv("STRAND_OMICS_BASE_URL"); baseURL != "" {
		config.Omics.BaseURL = baseURL
	}
	if token := os.Getenv("STRAND_OMICS_API_TOKEN"); token != "" {
		config.Omics.APIToken = token
	}
	if rateLimit := os.Getenv("STRAND_OMICS_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Omics.RateLimit = rl
		}
	}

	if interval := os.Getenv("STRAND_LAUNCHER_INTER_LAUNCH_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Launcher.InterLaunchInterval = d
		}
	}
	if baseDelay := os.Getenv("STRAND_LAUNCHER_RETRY_BASE_DELAY"); baseDelay != "" {
		if d, err := time.ParseDuration(baseDelay); err == nil {
			config.Launcher.RetryBaseDelay = d
		}
	}
	if maxAttempts := os.Getenv("STRAND_LAUNCHER_RETRY_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Launcher.RetryMaxAttempts = ma
		}
	}

	if interval := os.Getenv("STRAND_POLLER_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Poller.Interval = d
		}
	}
	if maxCycles := os.Getenv("STRAND_POLLER_MAX_CYCLES"); maxCycles != "" {
		if mc, err := strconv.Atoi(maxCycles); err == nil {
			config.Poller.MaxCycles = mc
		}
	}

	if dir := os.Getenv("STRAND_WATCHER_DIR"); dir != "" {
		config.Watcher.Dir = dir
	}
	if schedule := os.Getenv("STRAND_WATCHER_SCHEDULE"); schedule != "" {
		config.Watcher.Schedule = schedule
	}
	if enabled := os.Getenv("STRAND_WATCHER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Watcher.Enabled = e
		}
	}

	if webhook := os.Getenv("STRAND_NOTIFY_WEBHOOK_URL"); webhook != "" {
		config.Notify.WebhookURL = webhook
	}

	if baseURL := os.Getenv("STRAND_ARTIFACTS_BASE_URL"); baseURL != "" {
		config.Artifacts.BaseURL = baseURL
	}

	if catalog := os.Getenv("STRAND_REGISTRY_CATALOG_FILE"); catalog != "" {
		config.Registry.CatalogFile = catalog
	}
	if role := os.Getenv("STRAND_REGISTRY_EXECUTION_ROLE"); role != "" {
		config.Registry.ExecutionRole = role
	}
	if group := os.Getenv("STRAND_REGISTRY_RESOURCE_GROUP"); group != "" {
		config.Registry.ResourceGroup = group
	}

	if level := os.Getenv("STRAND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
