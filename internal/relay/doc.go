// Package relay provides the HTTP client for the relay collaborator: a
// directory of public prekey bundles and a store-and-forward mailbox of
// encrypted envelopes. The relay never sees plaintext or private keys.
//
// Fetching and posting are plain HTTP; Watch upgrades to a websocket so new
// envelopes are pushed as they arrive.
package relay
