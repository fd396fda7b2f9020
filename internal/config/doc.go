// Package config loads, normalizes, and validates recsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. Command-line flags layer on top of the
// loaded Config in cmd/recsort; everything below the CLI receives values that
// already passed Validate.
package config
