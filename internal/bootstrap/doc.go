// Package bootstrap owns the process-wide state document.
//
// A Bootstrapper probes the preferred backend, falls back to the local file
// and then to memory when it cannot be used, seeds the built-in default when
// nothing has been stored, and handles corrupt documents according to a
// CorruptPolicy. Afterwards it serves reads from an in-memory cache and
// writes whole documents through to the active backend.
//
// Every backend failure ends in a Ready state. The only error Initialize
// returns is a broken built-in default.
package bootstrap
