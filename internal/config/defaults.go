package config

import (
	"time"

	"git.home.luguber.info/inful/lobserver/internal/retry"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

const (
	DefaultAddr            = ":3000"
	DefaultMaxBodyBytes    = 5 << 20
	DefaultHomepage        = "index.html"
	DefaultHistoryPath     = "lobserver-history.db"
	DefaultHistoryKeep     = 200
	DefaultSnapshotEvery   = time.Hour
	DefaultWatchDebounce   = 500 * time.Millisecond
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoadTimeout     = 10 * time.Second
	defaultSaveTimeout     = 10 * time.Second
	defaultConnectTimeout  = 5 * time.Second
	defaultRemoteHistory   = 5
	defaultSaveRetries     = 2
	defaultSaveBackoff     = 200 * time.Millisecond
)

func applyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	if s.Homepage == "" {
		s.Homepage = DefaultHomepage
	}

	st := &cfg.Storage
	if st.Backend == "" {
		st.Backend = string(statestore.KindAuto)
	}
	if st.LoadTimeout == 0 {
		st.LoadTimeout = defaultLoadTimeout
	}
	if st.SaveTimeout == 0 {
		st.SaveTimeout = defaultSaveTimeout
	}
	if st.SaveRetries == 0 {
		st.SaveRetries = defaultSaveRetries
	}
	if st.SaveBackoff == 0 {
		st.SaveBackoff = defaultSaveBackoff
	}
	if st.SaveBackoffMode == "" {
		st.SaveBackoffMode = string(retry.ModeLinear)
	}
	if st.CorruptPolicy == "" {
		st.CorruptPolicy = "quarantine"
	}
	if st.File.Path == "" {
		st.File.Path = statestore.DefaultFilePath
	}
	if st.Remote.Bucket == "" {
		st.Remote.Bucket = statestore.DefaultRemoteBucket
	}
	if st.Remote.Key == "" {
		st.Remote.Key = statestore.DefaultRemoteKey
	}
	if st.Remote.ConnectTimeout == 0 {
		st.Remote.ConnectTimeout = defaultConnectTimeout
	}
	if st.Remote.History == 0 {
		st.Remote.History = defaultRemoteHistory
	}
	if st.Bolt.Path == "" {
		st.Bolt.Path = statestore.DefaultBoltPath
	}
	if st.Bolt.Bucket == "" {
		st.Bolt.Bucket = statestore.DefaultBoltBucket
	}
	if st.Bolt.Key == "" {
		st.Bolt.Key = statestore.DefaultBoltKey
	}

	h := &cfg.History
	if h.Path == "" {
		h.Path = DefaultHistoryPath
	}
	if h.SnapshotInterval == 0 {
		h.SnapshotInterval = DefaultSnapshotEvery
	}
	if h.Keep == 0 {
		h.Keep = DefaultHistoryKeep
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = string(LogLevelInfo)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(LogFormatText)
	}
}
