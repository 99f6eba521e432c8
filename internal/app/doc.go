// Package app wires the watch graph into a runnable program: it loads
// component declarations, renders them on a scheduler loop, applies
// user-driven writes and reports the resulting graph. It is decoupled from
// any specific entrypoint like a CLI.
package app
