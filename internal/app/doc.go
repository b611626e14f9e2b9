// Package app wires application dependencies for the CLI.
//
// It resolves Config from built-in defaults, an optional config.json in the
// home directory and command-line overrides, then builds the concrete stores,
// the key-generation executor, the relay client and the high-level services,
// exposing them via the Wire struct for commands to use.
package app
