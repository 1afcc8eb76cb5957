// Package commands defines the parley CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - fingerprint    Print the identity fingerprint
//   - register       Publish your prekey bundle to a relay
//   - safety-number  Print the comparison code for a peer
//   - session        Establish a session with a peer
//   - send           Encrypt and send a message
//   - recv           Fetch and decrypt queued messages (or follow the stream)
//   - group          Create a group and send group messages
//
// # Implementation
//
// The root command builds a dependency graph (stores, services, relay client)
// before any subcommand runs, so handlers share one app context.
package commands
