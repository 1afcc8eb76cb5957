// Package session establishes pairwise sessions: it fetches and verifies the
// peer's bundle, runs the key agreement as initiator, and seeds the ratchet.
// Concurrent initiations against the same peer collapse into one.
package session
