package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The scraping defaults mirror how the target directory actually behaves;
// the throttling defaults are conservative enough to stay under the
// completion service's rate limits in normal operation.
const (
	// DefaultSearchURLPattern is the realtor directory search page, filtered
	// by the first letter of the realtor's name. The fragment drives the
	// site's client-side search; results arrive via background XHR calls.
	DefaultSearchURLPattern = "https://www.realtor.ca/realtor-search-results#firstname=%s&province=7"

	// DefaultEndpointMatch is the URL substring identifying the background
	// results endpoint whose responses carry the embedded card markup.
	DefaultEndpointMatch = "GetRealtorResults"

	// DefaultMaxScrolls bounds the scroll loop per letter. Twenty scrolls
	// covers every letter observed in practice; the stale-scroll cutoff
	// below normally stops the loop much earlier.
	DefaultMaxScrolls = 20

	// DefaultStaleScrolls is the number of consecutive scrolls yielding no
	// new records before the collector gives up on the current letter.
	DefaultStaleScrolls = 3

	// DefaultSettlePause is the fixed pause after navigation and after each
	// scroll, giving the page's scripts time to fire their data fetches.
	DefaultSettlePause = 2 * time.Second

	// DefaultScrollPause is the pause between scroll passes. Shorter than
	// the settle pause because scrolling only has to outpace the site's
	// lazy-loading debounce.
	DefaultScrollPause = 1 * time.Second

	// DefaultBatchSize is the number of records per enrichment request.
	// Larger batches risk truncated answers from the completion service.
	DefaultBatchSize = 20

	// DefaultMinRequestInterval is the minimum spacing between completion
	// service calls.
	DefaultMinRequestInterval = 1 * time.Second

	// DefaultMaxRetries is the retry ceiling for rate-limited requests.
	DefaultMaxRetries = 3

	// DefaultBackoffBase is the first backoff delay after a rate-limit
	// signal; it doubles on each subsequent attempt.
	DefaultBackoffBase = 10 * time.Second

	// DefaultMaxTokens is the response token budget per enrichment request.
	DefaultMaxTokens = 4000

	// DefaultMaxToolUses bounds the web-search tool loop per request before
	// the service is asked for a final answer.
	DefaultMaxToolUses = 3

	// DefaultModel is the completion service model used for enrichment.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultCaptureDir is where raw intercepted payloads and raw batch
	// answers are written for diagnostics.
	DefaultCaptureDir = "scraper-found"

	// DefaultCollectorOutput is the collector's CSV output file.
	DefaultCollectorOutput = "scraper-output-all.csv"

	// DefaultEnricherOutput is the enricher's CSV output file.
	DefaultEnricherOutput = "personal-output.csv"

	// DefaultCompleterOutput is the completer's CSV output file.
	DefaultCompleterOutput = "final-output.csv"

	// DefaultChunkDir is where the chunk utility writes its output files.
	DefaultChunkDir = "scraper-output/chunks"

	// APIKeyEnv is the environment variable holding the completion service
	// credential. A .env file in the working directory is honored.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	// AppName is the application name used for XDG directory paths.
	AppName = "leadscan"
)

// Letters is the set of starting letters the collector iterates over.
const Letters = "abcdefghijklmnopqrstuvwxyz"

// Config holds all options for a leadscan run. It is populated from
// defaults, then the optional .leadscan file, then CLI flags, and passed
// through the application by value rather than held in global state.
type Config struct {
	// SearchURLPattern is the directory search URL with a %s placeholder
	// for the starting letter.
	SearchURLPattern string

	// EndpointMatch is the substring identifying interceptable result
	// responses by URL.
	EndpointMatch string

	// Letters restricts which starting letters are scraped. Defaults to
	// the full alphabet; useful for partial reruns.
	Letters string

	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// MaxScrolls bounds the scroll loop per letter.
	MaxScrolls int

	// StaleScrolls is the consecutive no-new-record scroll cutoff.
	StaleScrolls int

	// SettlePause is the pause after navigation waiting for page scripts.
	SettlePause time.Duration

	// ScrollPause is the pause between scroll passes.
	ScrollPause time.Duration

	// BatchSize is the number of records per enrichment request.
	BatchSize int

	// MinRequestInterval is the minimum spacing between service calls.
	MinRequestInterval time.Duration

	// MaxRetries is the rate-limit retry ceiling per request.
	MaxRetries int

	// BackoffBase is the initial rate-limit backoff delay.
	BackoffBase time.Duration

	// MaxTokens is the response token budget per request.
	MaxTokens int

	// MaxToolUses bounds the web-search tool loop per request.
	MaxToolUses int

	// Model is the completion service model identifier.
	Model string

	// APIKey is the completion service credential. Only the enrich and
	// complete stages need it; the collector runs without one.
	APIKey string

	// CaptureDir is the diagnostics directory for raw payloads.
	CaptureDir string

	// CollectorOutput, EnricherOutput, and CompleterOutput are the CSV
	// file paths produced by the three stages.
	CollectorOutput string
	EnricherOutput  string
	CompleterOutput string

	// SaveToDB controls persistence of collected leads to the local
	// SQLite store under the XDG data directory.
	SaveToDB bool

	// DBDir is the directory holding the SQLite lead store.
	DBDir string

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport and MarkdownReport select the run summary format.
	// Mutually exclusive; plain console output when neither is set.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is an optional path the run summary is written to.
	ReportFile string
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		SearchURLPattern:   DefaultSearchURLPattern,
		EndpointMatch:      DefaultEndpointMatch,
		Letters:            Letters,
		Headless:           true,
		MaxScrolls:         DefaultMaxScrolls,
		StaleScrolls:       DefaultStaleScrolls,
		SettlePause:        DefaultSettlePause,
		ScrollPause:        DefaultScrollPause,
		BatchSize:          DefaultBatchSize,
		MinRequestInterval: DefaultMinRequestInterval,
		MaxRetries:         DefaultMaxRetries,
		BackoffBase:        DefaultBackoffBase,
		MaxTokens:          DefaultMaxTokens,
		MaxToolUses:        DefaultMaxToolUses,
		Model:              DefaultModel,
		CaptureDir:         DefaultCaptureDir,
		CollectorOutput:    DefaultCollectorOutput,
		EnricherOutput:     DefaultEnricherOutput,
		CompleterOutput:    DefaultCompleterOutput,
		SaveToDB:           true,
		DBDir:              XDGDataDir(),
	}
}

// Validate checks the configuration for inconsistent or impossible values.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxScrolls <= 0 || c.StaleScrolls <= 0 {
		return ErrInvalidScrollLimits
	}
	if c.StaleScrolls > c.MaxScrolls {
		return ErrInvalidScrollLimits
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	if c.MinRequestInterval < 0 || c.BackoffBase < 0 {
		return ErrInvalidInterval
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Letters == "" {
		return ErrNoLetters
	}
	return nil
}

// XDGDataDir returns the XDG data directory for leadscan.
// On Linux: ~/.local/share/leadscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for leadscan.
// On Linux: ~/.config/leadscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
