// Package config loads and validates pwaforge configuration from TOML.
//
// Configuration resolves from an explicit path, ~/.config/pwaforge/config.toml,
// or a pwaforge.toml in the working directory, falling back to built-in
// defaults when no file exists. All path fields are expanded (~ resolution)
// and made absolute during load.
package config
