// Package output turns responses into text.
//
// Render and Summarize produce the display text and status metadata for a
// response; they are pure and never fail. A JSON body that does not parse is
// shown as received.
//
// The rest of the package serves the command line:
//   - ConsoleFormatter: colored status lines and environment listings
//   - JSONFormatter: machine-readable exchange records
//   - Extract, Query: pull values out of a response (gjson paths)
//   - ValidateSchema: check a JSON body against a JSON schema
package output
