// Package database provides SQLite-based storage for collected leads and
// run history. Persistence is optional: the CSV files remain the pipeline's
// source of truth, and the database accumulates results across runs for
// later querying.
package database
