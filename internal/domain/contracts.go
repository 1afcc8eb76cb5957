package domain

import "context"

// ---------- Stores ----------

// KeyStore is the raw persistence contract for key material. Implementations
// wrap byte arrays with a type tag and base64 before handing them to the
// underlying medium.
type KeyStore interface {
	SaveKey(userID, keyName string, data []byte) error
	LoadKey(userID, keyName string) ([]byte, bool, error)
}

// IdentityStore persists the device identity sealed under a passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}

// PreKeyStore persists the device's private prekey bundle sealed under a
// passphrase.
type PreKeyStore interface {
	SavePreKeyBundle(passphrase string, b PreKeyBundle) error
	LoadPreKeyBundle(passphrase string) (PreKeyBundle, bool, error)
}

// SessionStore persists Double Ratchet state per (local user, peer). State must
// be saved after every encrypt/decrypt; the core offers no automatic durability.
type SessionStore interface {
	SaveSession(userID, peerID string, st RatchetState) error
	LoadSession(userID, peerID string) (RatchetState, bool, error)
	DeleteSession(userID, peerID string) error
}

// GroupStore persists sender-key state per (group, sender).
type GroupStore interface {
	SaveGroupSession(groupID, senderID string, st SenderKeyState) error
	LoadGroupSession(groupID, senderID string) (SenderKeyState, bool, error)
}

// ---------- Relay ----------

// RelayClient talks to the relay collaborator: a directory of public bundles
// and a store-and-forward mailbox. The relay only ever sees opaque key bundles
// and ciphertext blobs.
type RelayClient interface {
	RegisterBundle(ctx context.Context, b PreKeyBundlePublic) error
	FetchBundle(ctx context.Context, userID string) (PreKeyBundlePublic, error)
	SendEnvelope(ctx context.Context, env Envelope) error
	FetchEnvelopes(ctx context.Context, userID string, limit int) ([]Envelope, error)
	AckEnvelopes(ctx context.Context, userID string, count int) error
	Watch(ctx context.Context, userID string) (<-chan Envelope, error)
}

// ---------- Services ----------

type IdentityService interface {
	Generate(passphrase string) (Identity, string, error)
	Load(passphrase string) (Identity, error)
	Fingerprint(passphrase string) (string, error)
	SafetyNumber(passphrase string, peerIdentityKey X25519Public) (string, error)
}

type PreKeyService interface {
	GenerateAndRegister(ctx context.Context, passphrase, userID string) (PreKeyBundlePublic, error)
}

type SessionService interface {
	Initiate(ctx context.Context, passphrase, userID, peerID string) (RatchetState, error)
}

type MessageService interface {
	Send(ctx context.Context, passphrase, from, to, text string) error
	Receive(ctx context.Context, passphrase, userID string, limit int) ([]Inbound, error)
	// Follow drains the mailbox, then streams pushed envelopes until ctx is
	// cancelled, invoking fn for every processed message.
	Follow(ctx context.Context, passphrase, userID string, fn func(Inbound)) error
}

type GroupService interface {
	Create(ctx context.Context, passphrase, userID, groupID string, members []string) error
	Send(ctx context.Context, userID, groupID string, members []string, text string) error
}

// GroupHandler is the slice of group behaviour the message pipeline needs:
// ingesting sender-key distributions and opening inbound group envelopes.
type GroupHandler interface {
	IngestDistribution(p Payload) error
	OpenGroupEnvelope(env Envelope) ([]byte, error)
}

// PayloadSender sends a typed payload to one peer over the pairwise ratchet.
// Implemented by the message service and consumed by the group service for
// sender-key distribution.
type PayloadSender interface {
	SendPayload(ctx context.Context, passphrase, from, to string, p Payload) error
}
