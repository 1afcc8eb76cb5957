// Package store persists key material, sessions and group sender keys on disk.
//
// Public material and wrapped state live in per-concern JSON files written via
// a temp-file-then-rename. Every byte array is wrapped with a type tag and
// base64 before it reaches the file. Private identity and prekey material is
// additionally sealed with a passphrase-derived key (scrypt +
// ChaCha20-Poly1305). Ratchet and sender-key state serialize through the
// versioned binary codec in the domain package; a blob that fails to decode
// surfaces domain.ErrPersistenceCorrupt so the caller can discard the session
// and re-handshake.
package store
