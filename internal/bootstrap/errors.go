package bootstrap

import (
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

var (
	// ErrNotReady is returned by State, Replace and Reload before Initialize completed.
	ErrNotReady = derrors.NotReadyError("state is not ready yet").Build()

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = derrors.InternalError("bootstrapper already initialized").Build()

	// ErrPersistenceFailed wraps backend save errors from Replace. The
	// cache already holds the new document when it is returned.
	ErrPersistenceFailed = derrors.PersistenceError("failed to persist state").Build()

	// ErrInvalidDefault means the built-in default document is unusable.
	ErrInvalidDefault = derrors.InternalError("built-in default state is invalid").Build()

	// ErrEmptyDocument is returned by Replace for a zero Document.
	ErrEmptyDocument = derrors.ValidationError("state must be a JSON object").Build()
)
