// Package errors provides the classified error primitives used across lobserver.
//
// A ClassifiedError carries a category, a severity, a retry hint and structured
// context. The category is what the HTTP and CLI adapters use to pick a status
// code or exit code, so backends and the bootstrapper only ever need to pick
// the right category.
//
// Key features:
//   - ErrorCategory: not_found, backend_unavailable, parse, persistence_failed, not_ready, ...
//   - ErrorSeverity: fatal, error, warning, info
//   - RetryStrategy: never, immediate, backoff, user
//   - ErrorBuilder: fluent construction of ClassifiedError values
//   - HTTP and CLI adapters for presenting errors
//
// Example usage:
//
//	err := errors.BackendUnavailableError("remote document store unreachable").
//		WithCause(dialErr).
//		WithContext("bucket", "lob-app").
//		Build()
package errors
