package statestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
)

const (
	DefaultBoltPath   = "lobserver.db"
	DefaultBoltBucket = "state"
	DefaultBoltKey    = "db"

	boltOpenTimeout = 2 * time.Second
)

// BoltConfig configures the embedded bbolt backend.
type BoltConfig struct {
	Path   string
	Bucket string
	Key    string
}

func (c BoltConfig) withDefaults() BoltConfig {
	if c.Path == "" {
		c.Path = DefaultBoltPath
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBoltBucket
	}
	if c.Key == "" {
		c.Key = DefaultBoltKey
	}
	return c
}

// BoltBackend keeps the document as a single value in a bbolt bucket.
type BoltBackend struct {
	cfg    BoltConfig
	db     *bolt.DB
	bucket []byte
	key    []byte
	now    func() time.Time
}

// OpenBolt opens (or creates) the database file and its bucket.
func OpenBolt(cfg BoltConfig) (*BoltBackend, error) {
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, unavailable(string(KindBolt), describePathErr("create data directory", err)).
			WithContext("path", cfg.Path).Build()
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, unavailable(string(KindBolt), fmt.Errorf("failed to open database: %w", err)).
			WithContext("path", cfg.Path).Build()
	}

	bucket := []byte(cfg.Bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, unavailable(string(KindBolt), err).WithContext("path", cfg.Path).Build()
	}

	return &BoltBackend{
		cfg:    cfg,
		db:     db,
		bucket: bucket,
		key:    []byte(cfg.Key),
		now:    time.Now,
	}, nil
}

// OpenBoltOpener adapts OpenBolt to an Opener.
func OpenBoltOpener(cfg BoltConfig) Opener {
	return func(ctx context.Context) (Backend, error) {
		return OpenBolt(cfg)
	}
}

func (b *BoltBackend) Name() string { return string(KindBolt) }

// Path returns the database file location.
func (b *BoltBackend) Path() string { return b.cfg.Path }

func (b *BoltBackend) Probe(ctx context.Context) error {
	err := b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return fmt.Errorf("bucket %s missing", b.bucket)
		}
		return nil
	})
	if err != nil {
		return unavailable(b.Name(), err).WithContext("path", b.cfg.Path).Build()
	}
	return nil
}

func (b *BoltBackend) Load(ctx context.Context) (appstate.Document, error) {
	if err := ctx.Err(); err != nil {
		return appstate.Document{}, unavailable(b.Name(), err).Build()
	}

	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		// Values are only valid inside the transaction.
		if v := bkt.Get(b.key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return appstate.Document{}, unavailable(b.Name(), err).WithContext("path", b.cfg.Path).Build()
	}
	if data == nil {
		return appstate.Document{}, notFound(b.Name()).
			WithContext("path", b.cfg.Path).WithContext("key", b.cfg.Key).Build()
	}

	doc, err := appstate.Parse(data)
	if err != nil {
		return appstate.Document{}, parseFailure(b.Name(), err).
			WithContext("path", b.cfg.Path).WithContext("key", b.cfg.Key).Build()
	}
	return doc, nil
}

func (b *BoltBackend) Save(ctx context.Context, doc appstate.Document) error {
	if err := ctx.Err(); err != nil {
		return unavailable(b.Name(), err).Build()
	}
	if doc.IsZero() {
		return unavailable(b.Name(), appstate.ErrNotObject).Build()
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}
		return bkt.Put(b.key, doc.Bytes())
	})
	if err != nil {
		return unavailable(b.Name(), fmt.Errorf("failed to store document: %w", err)).
			WithContext("path", b.cfg.Path).WithContext("key", b.cfg.Key).Build()
	}
	return nil
}

// Quarantine moves the corrupt value to <key>.corrupt-<timestamp> in the same bucket.
func (b *BoltBackend) Quarantine(ctx context.Context) (Quarantined, error) {
	target := fmt.Sprintf("%s.corrupt-%s", b.cfg.Key, b.now().UTC().Format("20060102T150405.000000000Z"))
	var raw []byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return errNoValue
		}
		v := bkt.Get(b.key)
		if v == nil {
			return errNoValue
		}
		raw = append([]byte(nil), v...)
		if err := bkt.Put([]byte(target), raw); err != nil {
			return err
		}
		return bkt.Delete(b.key)
	})
	if errors.Is(err, errNoValue) {
		return Quarantined{}, notFound(b.Name()).WithContext("path", b.cfg.Path).Build()
	}
	if err != nil {
		return Quarantined{}, unavailable(b.Name(), fmt.Errorf("failed to quarantine document: %w", err)).
			WithContext("path", b.cfg.Path).Build()
	}
	return Quarantined{Location: b.cfg.Path + "#" + b.cfg.Bucket + "/" + target, Raw: raw}, nil
}

var errNoValue = errors.New("no stored value")

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
