// Package cli parses command-line arguments into an app.Config, validates
// user input and maps failures to process exit codes.
package cli
