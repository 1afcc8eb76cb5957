// Package crypto exposes the primitives used by parley.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification
//   - HKDF-SHA256 derivation (HKDF)
//   - AES-256-GCM sealing with fresh random nonces (Seal, Open)
//   - The KEM placeholder used in the key agreement (Encapsulate, Decapsulate)
//   - Fingerprints and pairwise safety numbers (Fingerprint, SafetyNumber)
//
// All functions are CPU-bound and synchronous. Callers should treat returned
// secrets as sensitive and wipe them when practical.
package crypto
