// Package model defines the core data types shared across pipeline stages:
// the realtor contact Record, name-based deduplication, and the CSV column
// sets each stage reads and writes.
package model
