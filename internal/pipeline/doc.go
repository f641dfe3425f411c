// Package pipeline chains the processing stages of a run. Each stage reads
// one CSV file and writes the next; the pipeline threads the paths through
// in sequence.
package pipeline
