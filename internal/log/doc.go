// Package log provides a sanitizing slog handler that masks API
// credentials before log records reach the underlying handler. The scraper
// only holds one secret (the completion service key), but it appears in
// request headers and environment-derived config, both of which are easy
// to log by accident.
package log
