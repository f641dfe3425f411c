package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".leadscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML shape of the .leadscan configuration file. All fields
// are optional; zero values leave the corresponding default untouched.
type File struct {
	// Scraper settings.
	SearchURLPattern string  `yaml:"search_url_pattern"`
	EndpointMatch    string  `yaml:"endpoint_match"`
	Letters          string  `yaml:"letters"`
	Headless         *bool   `yaml:"headless"`
	MaxScrolls       int     `yaml:"max_scrolls"`
	StaleScrolls     int     `yaml:"stale_scrolls"`
	SettlePause      string  `yaml:"settle_pause"`
	ScrollPause      string  `yaml:"scroll_pause"`

	// Enrichment settings.
	BatchSize          int    `yaml:"batch_size"`
	MinRequestInterval string `yaml:"min_request_interval"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffBase        string `yaml:"backoff_base"`
	MaxTokens          int    `yaml:"max_tokens"`
	MaxToolUses        int    `yaml:"max_tool_uses"`
	Model              string `yaml:"model"`

	// Output settings.
	CaptureDir      string `yaml:"capture_dir"`
	CollectorOutput string `yaml:"collector_output"`
	EnricherOutput  string `yaml:"enricher_output"`
	CompleterOutput string `yaml:"completer_output"`
	SaveToDB        *bool  `yaml:"save_to_db"`
}

// LoadFile loads a .leadscan YAML file. If the file does not exist, it
// returns ErrConfigNotFound; callers decide whether that is fatal based on
// whether the path was explicitly requested by the user.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
// 1. The explicit path, if given
// 2. .leadscan in the current directory
// 3. .leadscan in the user's home directory
//
// Returns the path if found, or empty string if not.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Apply overlays file values onto the config. Unset file fields (zero
// values) leave the existing value in place.
func (f *File) Apply(cfg *Config) error {
	if f.SearchURLPattern != "" {
		cfg.SearchURLPattern = f.SearchURLPattern
	}
	if f.EndpointMatch != "" {
		cfg.EndpointMatch = f.EndpointMatch
	}
	if f.Letters != "" {
		cfg.Letters = f.Letters
	}
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	if f.MaxScrolls > 0 {
		cfg.MaxScrolls = f.MaxScrolls
	}
	if f.StaleScrolls > 0 {
		cfg.StaleScrolls = f.StaleScrolls
	}
	if err := applyDuration(&cfg.SettlePause, f.SettlePause); err != nil {
		return fmt.Errorf("settle_pause: %w", err)
	}
	if err := applyDuration(&cfg.ScrollPause, f.ScrollPause); err != nil {
		return fmt.Errorf("scroll_pause: %w", err)
	}
	if f.BatchSize > 0 {
		cfg.BatchSize = f.BatchSize
	}
	if err := applyDuration(&cfg.MinRequestInterval, f.MinRequestInterval); err != nil {
		return fmt.Errorf("min_request_interval: %w", err)
	}
	if f.MaxRetries > 0 {
		cfg.MaxRetries = f.MaxRetries
	}
	if err := applyDuration(&cfg.BackoffBase, f.BackoffBase); err != nil {
		return fmt.Errorf("backoff_base: %w", err)
	}
	if f.MaxTokens > 0 {
		cfg.MaxTokens = f.MaxTokens
	}
	if f.MaxToolUses > 0 {
		cfg.MaxToolUses = f.MaxToolUses
	}
	if f.Model != "" {
		cfg.Model = f.Model
	}
	if f.CaptureDir != "" {
		cfg.CaptureDir = f.CaptureDir
	}
	if f.CollectorOutput != "" {
		cfg.CollectorOutput = f.CollectorOutput
	}
	if f.EnricherOutput != "" {
		cfg.EnricherOutput = f.EnricherOutput
	}
	if f.CompleterOutput != "" {
		cfg.CompleterOutput = f.CompleterOutput
	}
	if f.SaveToDB != nil {
		cfg.SaveToDB = *f.SaveToDB
	}
	return nil
}

// applyDuration parses a duration string into dst if set.
func applyDuration(dst *time.Duration, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// LoadAPIKey resolves the completion service credential. A .env file in
// the working directory is loaded first if present, matching how the
// credential is distributed alongside the tool; the process environment
// always wins.
func LoadAPIKey() string {
	_ = godotenv.Load() // Missing .env is the normal case
	return os.Getenv(APIKeyEnv)
}
