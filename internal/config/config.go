// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Watch    WatchConfig    `mapstructure:"watch"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	FormsAPI FormsAPIConfig `mapstructure:"forms_api"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	State    StateConfig    `mapstructure:"state"`
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines the shared-secret check for trigger endpoints.
type AuthConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SharedSecret string `mapstructure:"shared_secret"`
}

// WatchConfig identifies the watched form and notification gating.
type WatchConfig struct {
	FormURL             string `mapstructure:"form_url"`
	FormID              string `mapstructure:"form_id"`
	UserAgent           string `mapstructure:"user_agent"`
	ForcedNotifyEnabled bool   `mapstructure:"forced_notify_enabled"`
}

// HTTPConfig configures outbound HTTP behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	BodyThreshold int  `mapstructure:"body_threshold"`
}

// FormsAPIConfig points at an optional structured responder endpoint.
type FormsAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
}

// NotifierConfig holds the outbound webhook credentials.
type NotifierConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StateConfig selects and parameterizes the state store backend.
type StateConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// DBConfig controls access to the relational database backend.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects the page snapshot archive backend.
type ArchiveConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for publish-subscribe check events.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("watch.user_agent", "formwatch-bot/0.1")
	v.SetDefault("watch.forced_notify_enabled", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.body_threshold", 2048)
	v.SetDefault("forms_api.enabled", false)
	v.SetDefault("notifier.timeout_seconds", 10)
	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "formwatch-state.json")
	v.SetDefault("db.table", "form_state")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Watch.FormURL == "" {
		return fmt.Errorf("watch.form_url is required")
	}
	if c.Notifier.WebhookURL == "" {
		return fmt.Errorf("notifier.webhook_url is required")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.SharedSecret == "" {
		return fmt.Errorf("auth.shared_secret must be set when auth is enabled")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.FormsAPI.Enabled && c.FormsAPI.URL == "" {
		return fmt.Errorf("forms_api.url must be set when forms_api is enabled")
	}
	switch c.State.Backend {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("state.backend must be one of memory, file, postgres")
	}
	if c.State.Backend == "file" && c.State.Path == "" {
		return fmt.Errorf("state.path must be set for the file backend")
	}
	if c.State.Backend == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set for the postgres backend")
	}
	switch c.Archive.Backend {
	case "none", "memory", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of none, memory, local, gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir must be set for the local backend")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NotifyTimeout bounds webhook delivery.
func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifier.TimeoutSeconds) * time.Second
}
