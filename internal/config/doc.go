// Package config loads sf-events settings from an optional TOML file.
//
// Missing files are not an error: every field has a default, and command-line
// flags override whatever the file sets. The default location is
// ~/.config/sf-events/config.toml.
package config
