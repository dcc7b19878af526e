// Package config loads, normalizes, and validates loopctl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LOOPCTL_BASE_URL. The Config type centralizes every knob the CLI needs to
// reach the streaming service and pace its polling.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, canonical log formats, and clear validation errors.
package config
