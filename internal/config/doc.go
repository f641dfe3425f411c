// Package config provides configuration structures and utilities for
// leadscan. It defines defaults for browser scraping, enrichment batching,
// throttling, and output locations, plus loading of the optional .leadscan
// YAML file.
package config
