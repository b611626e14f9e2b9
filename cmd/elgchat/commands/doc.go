// Package commands defines the elgchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Generate the local identity and seal its private key
//   - fingerprint    Print the identity fingerprint
//   - register       Publish your public key to a relay
//   - passwd         Reseal the private key under a new passphrase
//   - create         Create a conversation with other participants
//   - conversations  List the conversations you belong to
//   - send           Send a message under the conversation's sender key
//   - send-direct    Send a message encrypted per participant
//   - recv           Fetch, decrypt and acknowledge queued messages
//   - worker         Serve key-generation requests as JSON lines
//
// # Implementation
//
// The root command loads configuration (defaults, then <home>/config.json,
// then flags) and builds a dependency graph (stores, key-generation executor,
// relay client, services) before any subcommand runs.
package commands
