package config

import (
	"strings"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	"git.home.luguber.info/inful/lobserver/internal/foundation"
	"git.home.luguber.info/inful/lobserver/internal/retry"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// Normalize canonicalizes enum fields in place and validates the whole
// configuration. Failures are config ClassifiedErrors.
func (c *Config) Normalize() error {
	var vr foundation.ValidationResult

	if lvl, err := logLevelNormalizer.Parse(c.Logging.Level); err != nil {
		vr.Add("logging.level", "enum", "%v", err)
	} else {
		c.Logging.Level = string(lvl)
	}
	if f, err := logFormatNormalizer.Parse(c.Logging.Format); err != nil {
		vr.Add("logging.format", "enum", "%v", err)
	} else {
		c.Logging.Format = string(f)
	}

	if kind, err := statestore.ParseKind(c.Storage.Backend); err != nil {
		vr.Add("storage.backend", "enum", "%v", err)
	} else {
		c.Storage.Backend = string(kind)
	}
	if p, err := bootstrap.ParseCorruptPolicy(c.Storage.CorruptPolicy); err != nil {
		vr.Add("storage.corrupt_policy", "enum", "%v", err)
	} else {
		c.Storage.CorruptPolicy = string(p)
	}

	if m, err := retry.ParseMode(c.Storage.SaveBackoffMode); err != nil {
		vr.Add("storage.save_backoff_mode", "enum", "%v", err)
	} else {
		c.Storage.SaveBackoffMode = string(m)
	}

	vr.Merge(c.Server.validate())
	vr.Merge(c.Storage.validate())
	vr.Merge(c.History.validate())
	vr.Check(c.Watch.Debounce > 0, "watch.debounce", "range", "must be positive")

	return vr.ToError()
}

func (s ServerConfig) validate() foundation.ValidationResult {
	var vr foundation.ValidationResult
	vr.Check(strings.TrimSpace(s.Addr) != "", "server.addr", "required", "must not be empty")
	vr.Check(s.MaxBodyBytes > 0, "server.max_body_bytes", "range", "must be positive, got %d", s.MaxBodyBytes)
	vr.Check(s.MaxConnections >= 0, "server.max_connections", "range", "must not be negative, got %d", s.MaxConnections)
	vr.Check(s.ReadTimeout > 0, "server.read_timeout", "range", "must be positive")
	vr.Check(s.WriteTimeout > 0, "server.write_timeout", "range", "must be positive")
	vr.Check(s.ShutdownTimeout > 0, "server.shutdown_timeout", "range", "must be positive")
	return vr
}

func (st StorageConfig) validate() foundation.ValidationResult {
	var vr foundation.ValidationResult
	vr.Check(st.LoadTimeout > 0, "storage.load_timeout", "range", "must be positive")
	vr.Check(st.SaveTimeout > 0, "storage.save_timeout", "range", "must be positive")
	vr.Check(st.SaveRetries >= -1 && st.SaveRetries <= 10, "storage.save_retries", "range", "must be between -1 and 10, got %d", st.SaveRetries)
	vr.Check(st.SaveBackoff > 0, "storage.save_backoff", "range", "must be positive")
	vr.Check(strings.TrimSpace(st.File.Path) != "", "storage.file.path", "required", "must not be empty")
	vr.Check(st.Remote.History >= 1 && st.Remote.History <= 64, "storage.remote.history", "range", "must be between 1 and 64, got %d", st.Remote.History)
	vr.Check(st.Remote.ConnectTimeout > 0, "storage.remote.connect_timeout", "range", "must be positive")
	vr.Check(validKey(st.Remote.Bucket), "storage.remote.bucket", "format", "invalid bucket name %q", st.Remote.Bucket)
	vr.Check(validKey(st.Remote.Key), "storage.remote.key", "format", "invalid key %q", st.Remote.Key)
	if statestore.Kind(st.Backend) == statestore.KindBolt {
		vr.Check(strings.TrimSpace(st.Bolt.Path) != "", "storage.bolt.path", "required", "must not be empty")
	}
	return vr
}

func (h HistoryConfig) validate() foundation.ValidationResult {
	var vr foundation.ValidationResult
	if !h.Enabled {
		return vr
	}
	vr.Check(strings.TrimSpace(h.Path) != "", "history.path", "required", "must not be empty")
	vr.Check(h.Keep >= 0, "history.keep", "range", "must not be negative")
	vr.Check(h.SnapshotInterval >= 0, "history.snapshot_interval", "range", "must not be negative")
	return vr
}

// validKey accepts names usable as JetStream buckets and keys.
func validKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Selection converts the storage section into backend openers' input.
func (s StorageConfig) Selection() statestore.Selection {
	kind, _ := statestore.ParseKind(s.Backend)
	return statestore.Selection{
		Kind:        kind,
		Credentials: []byte(s.Remote.Credentials),
		File:        statestore.FileConfig{Path: s.File.Path},
		Remote: statestore.RemoteConfig{
			Bucket:         s.Remote.Bucket,
			Key:            s.Remote.Key,
			ConnectTimeout: s.Remote.ConnectTimeout,
			History:        uint8(s.Remote.History),
		},
		Bolt: statestore.BoltConfig{
			Path:   s.Bolt.Path,
			Bucket: s.Bolt.Bucket,
			Key:    s.Bolt.Key,
		},
	}
}

// Policy returns the corrupt-document policy.
func (s StorageConfig) Policy() bootstrap.CorruptPolicy {
	p, _ := bootstrap.ParseCorruptPolicy(s.CorruptPolicy)
	return p
}

// SaveRetry returns the retry policy for state saves.
func (s StorageConfig) SaveRetry() retry.Policy {
	if s.SaveRetries < 0 {
		return retry.None()
	}
	mode, _ := retry.ParseMode(s.SaveBackoffMode)
	return retry.NewPolicy(mode, s.SaveBackoff, s.SaveTimeout, s.SaveRetries)
}
