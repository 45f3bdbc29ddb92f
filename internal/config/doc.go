// Package config loads, validates, and normalizes plinth configuration.
//
// Configuration lives in a TOML file (default ~/.config/plinth/config.toml).
// Every path field is expanded and made absolute during Load. Directory
// creation is an explicit, idempotent step via EnsureDirectories rather than
// a load-time side effect.
package config
