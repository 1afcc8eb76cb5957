// Package relayserver implements the development relay: a bundle directory
// and a store-and-forward mailbox behind a small HTTP API, with a websocket
// endpoint that pushes envelopes to connected clients. Everything it handles
// is opaque ciphertext and public key material.
//
// The mailbox can live in process memory or in Redis; the directory is always
// in memory since bundles are cheap to re-register.
package relayserver
