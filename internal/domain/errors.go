package domain

import "errors"

// Error taxonomy for the encryption core. Expected conditions (a group key that
// has not arrived yet) are ordinary error branches; callers match with errors.Is.
var (
	// ErrInvalidBundle means a peer prekey bundle is malformed or incomplete.
	// Fatal for that session attempt; retryable after a re-fetch.
	ErrInvalidBundle = errors.New("invalid prekey bundle")

	// ErrSessionNotInitialized means encrypt/decrypt was called before X3DH
	// established a session with the peer.
	ErrSessionNotInitialized = errors.New("session not initialized")

	// ErrDecryptionFailure means an AEAD tag mismatch: tampering or a wrong key.
	// Never retried with the same inputs.
	ErrDecryptionFailure = errors.New("decryption failure")

	// ErrMessageFromPast means the skipped message key for an old chain position
	// was already consumed or evicted. The message is permanently undecryptable.
	ErrMessageFromPast = errors.New("message key from the past no longer available")

	// ErrGroupKeyMissing means a group message arrived from a sender whose
	// sender key has not been received yet. Recoverable: request distribution.
	ErrGroupKeyMissing = errors.New("group sender key missing")

	// ErrPersistenceCorrupt means stored state failed to deserialize. Safe
	// recovery is to discard the session and force a fresh handshake.
	ErrPersistenceCorrupt = errors.New("persisted state corrupt")
)
