// Package history keeps a SQLite ledger of reconstruction runs.
//
// Each run is inserted when it starts and updated once when it finishes, so
// an interrupted process leaves a row in the running state. The ledger is
// informational: reconstruction never reads it back, and callers treat
// ledger errors as warnings.
package history
