package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognized as overrides.
const (
	EnvPort              = "PORT"
	EnvBackend           = "LOB_BACKEND"
	EnvDBPath            = "LOB_DB_PATH"
	EnvBoltPath          = "LOB_BOLT_PATH"
	EnvRemoteCredentials = "LOB_REMOTE_CREDENTIALS"
	EnvRemoteBucket      = "LOB_REMOTE_BUCKET"
	EnvRemoteKey         = "LOB_REMOTE_KEY"
	EnvHistoryPath       = "LOB_HISTORY_PATH"
	EnvLogLevel          = "LOB_LOG_LEVEL"
	EnvLogFormat         = "LOB_LOG_FORMAT"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env and .env.local when present. Variables already
// set in the process environment are never overridden.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		_ = godotenv.Load(name)
	}
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvPort); ok {
		if strings.Contains(v, ":") {
			cfg.Server.Addr = v
		} else {
			cfg.Server.Addr = ":" + v
		}
	}
	if v, ok := get(EnvBackend); ok {
		cfg.Storage.Backend = v
	}
	if v, ok := get(EnvDBPath); ok {
		cfg.Storage.File.Path = v
	}
	if v, ok := get(EnvBoltPath); ok {
		cfg.Storage.Bolt.Path = v
	}
	if v, ok := get(EnvRemoteCredentials); ok {
		cfg.Storage.Remote.Credentials = v
	}
	if v, ok := get(EnvRemoteBucket); ok {
		cfg.Storage.Remote.Bucket = v
	}
	if v, ok := get(EnvRemoteKey); ok {
		cfg.Storage.Remote.Key = v
	}
	if v, ok := get(EnvHistoryPath); ok {
		cfg.History.Path = v
		cfg.History.Enabled = true
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Logging.Format = v
	}
}
