// Package chunk splits a CSV file into fixed-size sequential chunk files.
// It is a standalone utility for preparing batch inputs and is not on the
// pipeline's critical path.
package chunk
