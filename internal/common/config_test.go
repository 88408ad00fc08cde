package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8090 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Launcher.InterLaunchInterval != 10*time.Second {
		t.Errorf("inter-launch interval = %v", cfg.Launcher.InterLaunchInterval)
	}
	if cfg.Poller.Interval != 60*time.Second || cfg.Poller.MaxCycles != 1440 {
		t.Errorf("poller defaults = %v / %d", cfg.Poller.Interval, cfg.Poller.MaxCycles)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strand.toml")
	content := `
environment = "production"

[server]
port = 9999

[launcher]
retry_max_attempts = 7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Launcher.RetryMaxAttempts != 7 {
		t.Errorf("retry_max_attempts = %d", cfg.Launcher.RetryMaxAttempts)
	}
	if !cfg.IsProduction() {
		t.Error("environment override not applied")
	}
	// Untouched sections keep defaults
	if cfg.Poller.MaxCycles != 1440 {
		t.Errorf("poller max cycles = %d", cfg.Poller.MaxCycles)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STRAND_SERVER_PORT", "7777")
	t.Setenv("STRAND_OMICS_BASE_URL", "http://omics.test")
	t.Setenv("STRAND_POLLER_INTERVAL", "5s")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Omics.BaseURL != "http://omics.test" {
		t.Errorf("base URL = %q", cfg.Omics.BaseURL)
	}
	if cfg.Poller.Interval != 5*time.Second {
		t.Errorf("poller interval = %v", cfg.Poller.Interval)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 8181, "0.0.0.0")
	if cfg.Server.Port != 8181 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("overrides not applied: %+v", cfg.Server)
	}

	// Zero values leave config untouched
	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 8181 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("zero-value overrides clobbered config: %+v", cfg.Server)
	}
}
