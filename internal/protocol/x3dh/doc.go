// Package x3dh implements the key agreement used to bootstrap a Double Ratchet
// session between two parties who need not be online simultaneously.
//
// # Overview
//
// The responder publishes a prekey bundle: an identity key, a signed prekey
// with its Ed25519 signature, and a KEM prekey. The initiator combines three
// Diffie-Hellman outputs with one KEM encapsulation and derives a 32-byte
// shared secret via HKDF. The header (ephemeral public, initiator identity
// public, KEM ciphertext) lets the responder replicate the computation.
//
// # Protocol constants
//
// The four-secret concatenation order is DH(IK_A, SPK_B) ‖ DH(EK_A, IK_B) ‖
// DH(EK_A, SPK_B) ‖ KEM, the HKDF salt is IK_A_pub ‖ IK_B_pub (initiator
// first), and the info string is "parley/x3dh/v1". Both sides must agree on
// these exactly or the derived secrets silently diverge.
//
// # Errors
//
// domain.ErrInvalidBundle is returned for malformed or incomplete bundles,
// before any partial computation.
package x3dh
