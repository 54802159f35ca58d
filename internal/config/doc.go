// Package config loads, normalizes, and validates audiorating configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the AR_* environment overrides
// used by deployments (AR_DATABASE_URL, AR_ALLOWED_ORIGINS, AR_DEBUG,
// AR_API_TOKEN). The Config type centralizes every knob the backend service,
// the rating client, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
