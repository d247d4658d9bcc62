package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
)

const (
	// DefaultRemoteBucket is the collection holding the document.
	DefaultRemoteBucket = "lob-app"
	// DefaultRemoteKey is the fixed document identifier.
	DefaultRemoteKey = "db"

	defaultConnectTimeout = 5 * time.Second
	defaultRemoteHistory  = 5
)

// RemoteConfig configures the remote-document backend. Bucket and Key are
// fixed at construction and never derived from request data.
type RemoteConfig struct {
	Credentials    Credentials
	Bucket         string
	Key            string
	ConnectTimeout time.Duration
	// History is the number of revisions the bucket keeps per key (1-64).
	History uint8
}

func (c RemoteConfig) withDefaults() RemoteConfig {
	if c.Bucket == "" {
		c.Bucket = DefaultRemoteBucket
	}
	if c.Key == "" {
		c.Key = DefaultRemoteKey
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.History == 0 {
		c.History = defaultRemoteHistory
	}
	return c
}

// documentKV is the slice of a JetStream key-value bucket the backend uses.
type documentKV interface {
	Get(ctx context.Context, key string) ([]byte, uint64, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// RemoteBackend stores the document under one key of a NATS JetStream KV bucket.
type RemoteBackend struct {
	cfg  RemoteConfig
	kv   documentKV
	conn *nats.Conn
}

// OpenRemote dials NATS, binds (or creates) the bucket and returns the backend.
// The dial and bucket setup are bounded by ConnectTimeout.
func OpenRemote(ctx context.Context, cfg RemoteConfig) (*RemoteBackend, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, unavailable(string(KindRemote), err).WithContext("bucket", cfg.Bucket).Build()
	}

	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.Name(clientName(cfg.Credentials)),
	}
	switch {
	case cfg.Credentials.Token != "":
		opts = append(opts, nats.Token(cfg.Credentials.Token))
	case cfg.Credentials.User != "":
		opts = append(opts, nats.UserInfo(cfg.Credentials.User, cfg.Credentials.Password))
	}
	if cfg.Credentials.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.Credentials.CredsFile))
	}

	conn, err := nats.Connect(cfg.Credentials.URL, opts...)
	if err != nil {
		return nil, unavailable(string(KindRemote), fmt.Errorf("connect to NATS: %w", err)).
			WithContext("bucket", cfg.Bucket).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, unavailable(string(KindRemote), fmt.Errorf("create JetStream context: %w", err)).
			WithContext("bucket", cfg.Bucket).Build()
	}

	setupCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	kv, err := bindBucket(setupCtx, js, cfg)
	if err != nil {
		conn.Close()
		return nil, unavailable(string(KindRemote), err).WithContext("bucket", cfg.Bucket).Build()
	}

	return &RemoteBackend{cfg: cfg, kv: jetstreamKV{kv: kv}, conn: conn}, nil
}

// OpenRemoteOpener adapts OpenRemote to an Opener. A parse error in the
// credential blob is surfaced lazily so selection can fall back.
func OpenRemoteOpener(blob []byte, cfg RemoteConfig) Opener {
	return func(ctx context.Context) (Backend, error) {
		creds, err := ParseCredentials(blob)
		if err != nil {
			return nil, err
		}
		cfg.Credentials = creds
		return OpenRemote(ctx, cfg)
	}
}

func bindBucket(ctx context.Context, js jetstream.JetStream, cfg RemoteConfig) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("bind KV bucket: %w", err)
	}
	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Lob application state",
		History:     cfg.History,
	})
	if err != nil {
		return nil, fmt.Errorf("create KV bucket: %w", err)
	}
	return kv, nil
}

func clientName(c Credentials) string {
	if c.Name != "" {
		return c.Name
	}
	return "lobserver"
}

// newRemoteBackend wires a backend around an existing key-value handle.
func newRemoteBackend(cfg RemoteConfig, kv documentKV) *RemoteBackend {
	return &RemoteBackend{cfg: cfg.withDefaults(), kv: kv}
}

func (b *RemoteBackend) Name() string { return string(KindRemote) }

// Bucket and Key report the fixed document address.
func (b *RemoteBackend) Bucket() string { return b.cfg.Bucket }
func (b *RemoteBackend) Key() string    { return b.cfg.Key }

// Probe checks the connection is up.
func (b *RemoteBackend) Probe(ctx context.Context) error {
	if b.conn != nil && !b.conn.IsConnected() {
		return unavailable(b.Name(), fmt.Errorf("NATS connection status %s", b.conn.Status())).
			WithContext("bucket", b.cfg.Bucket).Build()
	}
	return nil
}

// Load fetches the latest revision of the document key.
func (b *RemoteBackend) Load(ctx context.Context) (appstate.Document, error) {
	value, _, err := b.kv.Get(ctx, b.cfg.Key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return appstate.Document{}, notFound(b.Name()).
				WithContext("bucket", b.cfg.Bucket).WithContext("key", b.cfg.Key).Build()
		}
		return appstate.Document{}, unavailable(b.Name(), fmt.Errorf("get document: %w", err)).
			WithContext("bucket", b.cfg.Bucket).WithContext("key", b.cfg.Key).Build()
	}
	doc, err := appstate.Parse(value)
	if err != nil {
		return appstate.Document{}, parseFailure(b.Name(), err).
			WithContext("bucket", b.cfg.Bucket).WithContext("key", b.cfg.Key).Build()
	}
	return doc, nil
}

// Save puts the whole document as a new revision of the key.
func (b *RemoteBackend) Save(ctx context.Context, doc appstate.Document) error {
	if doc.IsZero() {
		return unavailable(b.Name(), appstate.ErrNotObject).Build()
	}
	if _, err := b.kv.Put(ctx, b.cfg.Key, doc.Bytes()); err != nil {
		return unavailable(b.Name(), fmt.Errorf("put document: %w", err)).
			WithContext("bucket", b.cfg.Bucket).WithContext("key", b.cfg.Key).Build()
	}
	return nil
}

// Close drains the NATS connection.
func (b *RemoteBackend) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// jetstreamKV adapts jetstream.KeyValue to documentKV.
type jetstreamKV struct {
	kv jetstream.KeyValue
}

func (j jetstreamKV) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := j.kv.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return entry.Value(), entry.Revision(), nil
}

func (j jetstreamKV) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	return j.kv.Put(ctx, key, value)
}
