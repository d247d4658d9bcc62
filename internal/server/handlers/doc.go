// Package handlers implements the lobserver HTTP endpoints.
//
// Handlers depend on narrow interfaces (StateStore, StatusProvider) rather
// than on the bootstrapper, so tests can drive them with fakes.
package handlers
