package statestore

import (
	"errors"
	"fmt"
	"os"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

const (
	msgNotFound    = "state document not found"
	msgUnavailable = "state backend unavailable"
	msgParse       = "persisted state is not a valid document"
)

var (
	// ErrNotFound means no document has ever been written to the backend.
	ErrNotFound = derrors.NotFoundError(msgNotFound).Build()

	// ErrBackendUnavailable covers missing configuration, I/O and network failures.
	ErrBackendUnavailable = derrors.BackendUnavailableError(msgUnavailable).Build()

	// ErrParse means the backend returned bytes that are not a JSON object.
	ErrParse = derrors.ParseError(msgParse).Build()
)

func notFound(backend string) *derrors.ErrorBuilder {
	return derrors.NotFoundError(msgNotFound).WithContext("backend", backend)
}

func unavailable(backend string, cause error) *derrors.ErrorBuilder {
	return derrors.BackendUnavailableError(msgUnavailable).
		WithCause(cause).
		WithContext("backend", backend)
}

func parseFailure(backend string, cause error) *derrors.ErrorBuilder {
	return derrors.ParseError(msgParse).
		WithCause(cause).
		WithContext("backend", backend)
}

// decode turns stored bytes into a document, classifying failures as ErrParse.
func decode(backend string, data []byte) (appstate.Document, error) {
	doc, err := appstate.Parse(data)
	if err != nil {
		return appstate.Document{}, parseFailure(backend, err).Build()
	}
	return doc, nil
}

// IsNotFound reports whether err means no document exists yet.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err means the backend could not be used.
func IsUnavailable(err error) bool { return errors.Is(err, ErrBackendUnavailable) }

// IsParse reports whether err means the stored document is corrupt.
func IsParse(err error) bool { return errors.Is(err, ErrParse) }

func describePathErr(op string, err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return fmt.Errorf("%s %s: %w", op, pe.Path, pe.Err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
