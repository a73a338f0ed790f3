// Package config loads, normalizes, and validates splitledger configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads sectioned TOML files. The Config type centralizes
// every knob the CLI and batch jobs need: data/log directories, log format
// and level, and job tuning such as the invitation expiry window.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
