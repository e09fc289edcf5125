// Package config loads and validates the TOML configuration for corkboard.
package config
