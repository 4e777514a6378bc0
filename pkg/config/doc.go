// Package config handles configuration management for metaini.
// Settings are layered from embedded TOML defaults, an optional config
// file, METAINI_* environment variables and command-line flags.
package config
