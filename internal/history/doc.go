// Package history keeps a SQLite ledger of subtitle runs and their state
// transitions. The ledger is informational: a failure to record never fails
// a run.
package history
