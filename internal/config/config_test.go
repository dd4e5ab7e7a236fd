package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
auth:
  enabled: true
  shared_secret: hunter2
watch:
  form_url: https://docs.example.com/forms/abc123
  form_id: abc123
  user_agent: formwatch-test
  forced_notify_enabled: true
http:
  timeout_seconds: 45
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
  body_threshold: 4096
forms_api:
  enabled: true
  url: https://api.example.com/forms/abc123/status
notifier:
  webhook_url: https://hooks.example.com/T000/B000
  timeout_seconds: 5
state:
  backend: file
  path: /var/lib/formwatch/state.json
archive:
  backend: local
  dir: /var/lib/formwatch/snapshots
logging:
  development: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.SharedSecret != "hunter2" {
		t.Fatal("expected auth enabled with shared secret")
	}
	if cfg.Watch.FormURL != "https://docs.example.com/forms/abc123" || !cfg.Watch.ForcedNotifyEnabled {
		t.Fatalf("expected watch overrides to apply: %+v", cfg.Watch)
	}
	if !cfg.FormsAPI.Enabled || cfg.FormsAPI.URL == "" {
		t.Fatalf("expected forms api config: %+v", cfg.FormsAPI)
	}
	if cfg.Headless.BodyThreshold != 4096 {
		t.Fatalf("expected headless overrides, got %+v", cfg.Headless)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.NotifyTimeout(); got != 5*time.Second {
		t.Fatalf("expected notify timeout 5s, got %v", got)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
watch:
  form_url: https://docs.example.com/forms/abc123
notifier:
  webhook_url: https://hooks.example.com/T000/B000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Watch.ForcedNotifyEnabled {
		t.Fatal("forced notify must default to disabled")
	}
	if cfg.State.Backend != "file" || cfg.State.Path == "" {
		t.Fatalf("expected file state defaults, got %+v", cfg.State)
	}
	if cfg.Archive.Backend != "none" {
		t.Fatalf("expected archive disabled by default, got %q", cfg.Archive.Backend)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Watch:    WatchConfig{FormURL: "https://example.com/form"},
			HTTP:     HTTPConfig{TimeoutSeconds: 15},
			Notifier: NotifierConfig{WebhookURL: "https://hooks.example.com/x"},
			State:    StateConfig{Backend: "memory"},
			Archive:  ArchiveConfig{Backend: "none"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing form url", mutate: func(c *Config) { c.Watch.FormURL = "" }},
		{name: "missing webhook url", mutate: func(c *Config) { c.Notifier.WebhookURL = "" }},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{name: "auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }},
		{name: "unknown state backend", mutate: func(c *Config) { c.State.Backend = "redis" }},
		{name: "file backend without path", mutate: func(c *Config) { c.State.Backend = "file" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.State.Backend = "postgres" }},
		{name: "unknown archive backend", mutate: func(c *Config) { c.Archive.Backend = "s3" }},
		{name: "local archive without dir", mutate: func(c *Config) { c.Archive.Backend = "local" }},
		{name: "gcs archive without bucket", mutate: func(c *Config) { c.Archive.Backend = "gcs" }},
		{name: "forms api without url", mutate: func(c *Config) { c.FormsAPI.Enabled = true }},
		{
			name: "headless without parallelism",
			mutate: func(c *Config) {
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
