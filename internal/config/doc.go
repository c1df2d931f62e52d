// Package config loads, normalizes, and validates the TOML configuration for
// the pipeline. A missing config file falls back to defaults so read-only
// commands work out of the box; validation errors name the offending key.
package config
