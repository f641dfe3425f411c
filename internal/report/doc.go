// Package report renders run summaries in human-readable, JSON, and
// Markdown formats.
package report
