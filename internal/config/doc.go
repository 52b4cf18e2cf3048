// Package config loads, normalizes, and validates subgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and honours environment overrides such
// as SUBGEN_OUTPUT_DIR and HF_TOKEN. The Config type centralizes every knob the
// CLI, the resolver, and the transcription backends need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
