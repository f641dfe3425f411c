// Package enrich fills missing contact fields by asking a web-search
// capable completion service about batches of records. The Enricher and
// Completer are two parameterizations of the same batching stage: they
// differ only in which records they select, the prompt they send, and the
// columns they merge back.
package enrich
