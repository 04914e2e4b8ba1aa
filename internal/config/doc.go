// Package config loads, normalizes, and validates slowjams configuration
// from TOML. The resulting Config value is passed explicitly into the
// engine and CLI constructors; there is no process-wide configuration
// state.
package config
