// Package config loads and validates bitcrush configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Archive backends accepted by archive.backend.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transform TransformConfig `mapstructure:"transform"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                     int `mapstructure:"port"`
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	RequestTimeoutSeconds    int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds"`
	SinkTimeoutSeconds       int `mapstructure:"sink_timeout_seconds"`
}

// TransformConfig sizes the worker pool and bounds its inputs and outputs.
type TransformConfig struct {
	Workers        int   `mapstructure:"workers"`
	QueueDepth     int   `mapstructure:"queue_depth"`
	OutputQuality  int   `mapstructure:"output_quality"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	MaxPixels      int   `mapstructure:"max_pixels"`
}

// ArchiveConfig selects where stored artifacts are exported.
type ArchiveConfig struct {
	Backend string             `mapstructure:"backend"`
	Prefix  string             `mapstructure:"prefix"`
	Bucket  string             `mapstructure:"bucket"`
	Local   LocalArchiveConfig `mapstructure:"local"`
}

// LocalArchiveConfig configures the filesystem archive.
type LocalArchiveConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether Pub/Sub notifications should be sent.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// DatabaseConfig controls the submission ledger connection.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelemetryConfig names the service in exported traces.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Version     string  `mapstructure:"version"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BITCRUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "BITCRUSH_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

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
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_header_timeout_seconds", 5)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.sink_timeout_seconds", 10)
	v.SetDefault("transform.workers", 4)
	v.SetDefault("transform.queue_depth", 64)
	v.SetDefault("transform.output_quality", 25)
	v.SetDefault("transform.max_upload_bytes", 20<<20)
	v.SetDefault("transform.max_pixels", 1<<24)
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.prefix", "crushed")
	v.SetDefault("database.table", "submissions")
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.service_name", "bitcrush")
	v.SetDefault("telemetry.version", "dev")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Server.SinkTimeoutSeconds <= 0 {
		return fmt.Errorf("server.sink_timeout_seconds must be > 0")
	}
	if c.Transform.Workers <= 0 {
		return fmt.Errorf("transform.workers must be > 0")
	}
	if c.Transform.QueueDepth <= 0 {
		return fmt.Errorf("transform.queue_depth must be > 0")
	}
	if c.Transform.OutputQuality < 1 || c.Transform.OutputQuality > 100 {
		return fmt.Errorf("transform.output_quality must be between 1 and 100")
	}
	if c.Transform.MaxUploadBytes <= 0 {
		return fmt.Errorf("transform.max_upload_bytes must be > 0")
	}
	if c.Transform.MaxPixels <= 0 {
		return fmt.Errorf("transform.max_pixels must be > 0")
	}
	switch c.Archive.Backend {
	case "", ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.Local.BaseDir == "" {
			return fmt.Errorf("archive.local.base_dir must be set for the local backend")
		}
	case ArchiveGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not supported", c.Archive.Backend)
	}
	if c.Database.MinConns > 0 && c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must not exceed database.max_conns")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1")
	}
	return nil
}

// ReadHeaderTimeout returns the http.Server header read budget.
func (c Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single request, including the wait for a transform.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds the graceful drain on exit.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// SinkTimeout bounds each post-insert ledger, archive and publish call.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Server.SinkTimeoutSeconds) * time.Second
}
