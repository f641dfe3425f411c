package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinel errors let callers use errors.Is() while keeping
// the messages human-readable.
var (
	// ErrInvalidBatchSize is returned when the enrichment batch size is not
	// positive. A zero batch size would make the batch loop spin forever.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidScrollLimits is returned when the scroll limits are not
	// positive or the stale cutoff exceeds the scroll ceiling, which would
	// make the cutoff unreachable.
	ErrInvalidScrollLimits = errors.New("invalid scroll limits: max and stale cutoff must be positive, cutoff <= max")

	// ErrInvalidMaxRetries is returned when the rate-limit retry ceiling is
	// not positive.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be positive")

	// ErrInvalidInterval is returned when a throttle interval or backoff
	// base is negative. Use 0 to disable the corresponding wait.
	ErrInvalidInterval = errors.New("invalid interval: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoLetters is returned when the letter set is empty.
	ErrNoLetters = errors.New("no letters: at least one starting letter is required")

	// ErrMissingAPIKey is returned by stages that call the completion
	// service when no credential is configured.
	ErrMissingAPIKey = errors.New("missing API key: set " + APIKeyEnv + " or add it to a .env file")
)
