// Package config loads, normalizes, and validates miesnwb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MIESNWB_ARCHIVE_DIR
// environment fallback. The Config type centralizes the knobs the CLI needs:
// where archives live, where logs and the archive index go, which extra
// notebook fields a file must carry, and how exports and metrics are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
