// Package statestore persists the single AppState document.
//
// Every backend stores exactly one logical document and implements the same
// whole-document Load/Save contract:
//
//   - FileBackend: one JSON file, written atomically (temp file + rename)
//   - RemoteBackend: one key in a NATS JetStream key-value bucket
//   - BoltBackend: one key in a bbolt bucket
//   - MemoryBackend: process memory; last resort and test double
//
// Load distinguishes "never written" (ErrNotFound), "cannot reach the
// backend" (ErrBackendUnavailable) and "stored bytes are not a document"
// (ErrParse). Callers match them with errors.Is.
package statestore
