// Package csvio reads and writes the pipeline's CSV hand-off files.
// Every stage boundary is a CSV file with a header row; this package keeps
// the column handling in one place so stages only deal in model.Record.
package csvio
