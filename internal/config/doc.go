// SPDX-License-Identifier: MPL-2.0

// Package config handles make-sps configuration using Viper with CUE as the
// file format.
//
// Configuration is read from config.cue in the platform config directory
// ($XDG_CONFIG_HOME/make-sps on Linux, ~/Library/Application Support/make-sps
// on macOS, %APPDATA%\make-sps on Windows), from ./config.cue, or from an
// explicit path. Every key can be overridden with a MAKESPS_ environment
// variable, e.g. MAKESPS_DESCRIBE_PROVIDER=ollama. A .env file in the working
// directory is a convenient place for credentials.
//
// Files are validated against the embedded CUE schema (config_schema.cue);
// the decoded Config is validated again so environment values get the same
// checks.
package config
