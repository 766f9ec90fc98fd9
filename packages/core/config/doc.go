// Package config handles configuration loading and management for hitpad.
//
// It provides functionality for:
//   - Loading .hitpad.json, .hitpad.yaml or .hitpadrc files through viper
//   - Default configuration values
//   - HITPAD_* environment variable overrides (e.g. HITPAD_TIMEOUT)
//   - Merging command line flags over file settings
package config
