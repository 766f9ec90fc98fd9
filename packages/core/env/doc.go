// Package env handles environment bindings and variable substitution for hitpad.
//
// It provides functionality for:
//   - Named bindings of ordered variables with an optional default base URL
//   - Single-pass substitution of {{variable}} tokens
//   - Importing variables from KEY=VALUE files
package env
