// Package cmd implements the hitpad CLI commands using Cobra.
//
// Available commands:
//   - send: Compose and send one request
//   - env: Create, edit, import and delete saved environments
//   - bench: Send requests repeatedly and report latency
//   - tui: Open the interactive request editor
//   - init: Create a config file and an example request
//   - import: Convert curl, Insomnia or OpenAPI requests into request files
//   - version: Show hitpad version information
//
// Settings come from the config file, HITPAD_* environment variables (a .env
// file in the working directory is loaded first) and flags, in increasing
// precedence.
package cmd
