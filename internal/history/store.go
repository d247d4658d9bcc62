package history

import (
	"context"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

// Store persists and retrieves revisions.
type Store interface {
	// Record appends a revision. Missing ID and CreatedAt are filled in.
	Record(ctx context.Context, rev Revision) (Revision, error)

	// List returns revision metadata, newest first. Payloads are not loaded.
	// limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Revision, error)

	// ListByReason is List restricted to one reason; "" matches every reason.
	ListByReason(ctx context.Context, reason Reason, limit int) ([]Revision, error)

	// Get returns one revision including its payload.
	Get(ctx context.Context, id string) (Revision, error)

	// Latest returns the newest revision including its payload.
	Latest(ctx context.Context) (Revision, error)

	// Prune deletes all but the newest keep revisions and reports how many were removed.
	Prune(ctx context.Context, keep int) (int, error)

	// Close closes the store and releases resources.
	Close() error
}

// ErrRevisionNotFound is returned by Get and Latest when nothing matches.
var ErrRevisionNotFound = derrors.NotFoundError("revision not found").Build()
