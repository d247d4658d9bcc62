// Package config loads lobserver configuration from an optional YAML file,
// .env files and environment overrides.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "lobserver.yaml"

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// MaxConnections caps concurrent connections; 0 means unlimited.
	MaxConnections int      `yaml:"max_connections"`
	CORSOrigins    []string `yaml:"cors_origins"`
	Homepage       string   `yaml:"homepage"`
	Metrics        bool     `yaml:"metrics"`
}

// StorageConfig selects and configures the state backends.
type StorageConfig struct {
	Backend       string        `yaml:"backend"` // auto|remote|file|bolt|memory
	LoadTimeout   time.Duration `yaml:"load_timeout"`
	SaveTimeout   time.Duration `yaml:"save_timeout"`
	CorruptPolicy string        `yaml:"corrupt_policy"` // quarantine|overwrite

	// SaveRetries bounds retries of unavailable-backend saves; -1 disables.
	SaveRetries     int           `yaml:"save_retries"`
	SaveBackoff     time.Duration `yaml:"save_backoff"`
	SaveBackoffMode string        `yaml:"save_backoff_mode"` // fixed|linear|exponential

	File   FileStorage   `yaml:"file"`
	Remote RemoteStorage `yaml:"remote"`
	Bolt   BoltStorage   `yaml:"bolt"`
}

type FileStorage struct {
	Path string `yaml:"path"`
}

// RemoteStorage configures the NATS JetStream key-value backend.
type RemoteStorage struct {
	// Credentials is the JSON credential blob; usually set via LOB_REMOTE_CREDENTIALS.
	Credentials    string        `yaml:"credentials"`
	Bucket         string        `yaml:"bucket"`
	Key            string        `yaml:"key"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	History        int           `yaml:"history"`
}

type BoltStorage struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
}

// HistoryConfig configures the SQLite revision archive.
type HistoryConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Path             string        `yaml:"path"`
	RecordUpdates    bool          `yaml:"record_updates"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	Keep             int           `yaml:"keep"`
}

// WatchConfig configures reloading after hand edits of the state file.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from configPath. A missing file yields defaults.
// .env files are loaded first, then ${VAR} references in the YAML are
// expanded, defaults applied, environment overrides applied and the
// result validated.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, derrors.ConfigError("failed to read config file").
				WithCause(err).WithContext("path", configPath).Build()
		default:
			if err := decode(data, cfg); err != nil {
				return nil, derrors.ConfigError("failed to parse config file").
					WithCause(err).WithContext("path", configPath).Build()
			}
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg, os.LookupEnv)
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a fully defaulted, validated configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	_ = cfg.Normalize()
	return cfg
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if len(bytes.TrimSpace([]byte(expanded))) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}
