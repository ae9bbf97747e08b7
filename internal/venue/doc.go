// Package venue loads and validates the venue registry that drives extraction.
//
// Each venue names the page URLs worth scraping. The registry is read from YAML;
// when no file is configured an embedded list of San Francisco rooms is used.
package venue
