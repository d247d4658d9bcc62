// Package appstate defines the whole-application document served by lobserver.
//
// The document is kept as raw JSON. Nothing in lobserver decodes it into a
// schema type, so whatever a client writes is what a later read returns:
// unknown fields, number precision and nesting survive unchanged.
package appstate
