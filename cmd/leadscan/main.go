// Package main provides the entry point for the leadscan CLI.
//
// Leadscan builds a contact list of real estate agents by scraping a public
// realtor directory, then optionally enriching the records with email
// addresses found through a web-search capable completion service.
//
// Usage:
//
//	leadscan scrape
//	leadscan run --enrich --complete
//	leadscan chunk final-output.csv
//
// See --help for all available options.
package main

// main is the entry point for leadscan.
func main() {
	Execute()
}
