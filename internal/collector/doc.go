// Package collector drives the browser against the realtor directory,
// intercepts the background result responses, and extracts contact records
// from the card markup embedded in them.
//
// Record extraction is a pure function over a captured payload so it can
// be tested against fixture payloads without a browser; the live loop in
// collector.go only wires captures to the extractor.
package collector
