// Package history keeps an append-only archive of state document revisions
// in SQLite. Revisions are written before risky overwrites (seed, quarantine),
// after successful updates, and periodically by the Snapshotter. The archive
// is never read back into the live document automatically.
package history
