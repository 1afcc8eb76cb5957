// Package ratchet implements the Double Ratchet algorithm following Signal's
// design.
//
// The algorithm maintains a root key and two message chains (send and
// receive). Each message advances a KDF chain so that keys are forward secure.
// When a party changes its DH ratchet public key, both sides derive new chain
// keys from a new root derived via DH. Message keys derived during chain
// fast-forwards are cached (bounded, oldest evicted first) so messages may
// arrive in any order within that window.
//
// Decrypt applies changes atomically: it works on a copy of the state and
// commits only after the AEAD opens, so a failed call never half-advances a
// chain.
//
// Concurrency: RatchetState is NOT safe for concurrent use. Callers must
// serialise access per conversation and persist the state after every call.
package ratchet
