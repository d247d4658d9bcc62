package bootstrap

import (
	"time"

	"git.home.luguber.info/inful/lobserver/internal/foundation/normalization"
)

// Mode describes how far the bootstrapper had to fall back.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeDegraded Mode = "degraded"
	ModeMemory   Mode = "memory"
)

// CorruptPolicy decides what happens to a stored document that does not parse.
type CorruptPolicy string

const (
	// PolicyQuarantine moves the corrupt document aside (and archives it)
	// before seeding the default.
	PolicyQuarantine CorruptPolicy = "quarantine"
	// PolicyOverwrite replaces the corrupt document with the default.
	PolicyOverwrite CorruptPolicy = "overwrite"
)

var policyNormalizer = normalization.NewNormalizer("corrupt policy", map[string]CorruptPolicy{
	"quarantine": PolicyQuarantine,
	"overwrite":  PolicyOverwrite,
}, PolicyQuarantine)

// ParseCorruptPolicy normalizes a policy name. Empty input means quarantine.
func ParseCorruptPolicy(raw string) (CorruptPolicy, error) {
	return policyNormalizer.Parse(raw)
}

// Status is a point-in-time view of the bootstrapper.
type Status struct {
	Ready     bool   `json:"ready"`
	Mode      Mode   `json:"mode,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Preferred string `json:"preferred,omitempty"`
	// Reason explains why the preferred backend is not in use.
	Reason string `json:"reason,omitempty"`
	// Seeded is true when the cache started from the built-in default.
	Seeded        bool `json:"seeded"`
	SeedPersisted bool `json:"seed_persisted"`
	// Quarantined is where a corrupt document was moved, if any.
	Quarantined string    `json:"quarantined,omitempty"`
	ReadyAt     time.Time `json:"ready_at,omitzero"`
	// Revision increments on every cache replacement.
	Revision         uint64 `json:"revision"`
	LastPersistError string `json:"last_persist_error,omitempty"`
}

// Degraded reports whether the preferred backend is not the one in use.
func (s Status) Degraded() bool {
	return s.Ready && s.Mode != ModeNormal
}
