// Package config loads, validates, and defaults Rollcall's TOML configuration.
//
// Load resolves the config path (explicit flag, ~/.config/rollcall/config.toml,
// or a project-local rollcall.toml), decodes it over Default(), expands all
// path fields, and validates cross-field constraints such as the tracker
// window sizing. The embedded sample_config.toml documents every key and is
// written verbatim by `rollcall config init`.
package config
