package domain

// Envelope kinds on the relay wire.
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// Payload types carried inside a pairwise ciphertext.
const (
	PayloadText                  = "text"
	PayloadSenderKeyDistribution = "sender_key_distribution"
)

// PreKeyBundlePublic is the public half of a device bundle as served by the
// relay directory. All keys are base64-encoded 32-byte values.
type PreKeyBundlePublic struct {
	UserID          string `json:"user_id"`
	IdentityKey     string `json:"identity_key"`
	SigningKey      string `json:"signing_key"`
	SignedPreKey    string `json:"signed_pre_key"`
	SignedPreKeySig string `json:"signed_pre_key_sig"`
	KyberPreKey     string `json:"kyber_pre_key"`
}

// X3DHHeader carries what the responder needs to replicate the initiator's key
// agreement: the ephemeral public, the initiator identity public, and the KEM
// ciphertext. Created per new session and consumed exactly once.
type X3DHHeader struct {
	EK string `json:"ek"`
	IK string `json:"ik"`
	PQ string `json:"pq"`
}

// Envelope is the wire message moved by the relay. A direct envelope carries a
// ratchet header (and, on the first message of a session, an X3DH header); a
// group envelope carries a sender-key step instead.
type Envelope struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`

	// Direct.
	Header *RatchetHeader `json:"header,omitempty"`
	X3DH   *X3DHHeader    `json:"x3dh,omitempty"`

	// Group.
	GroupID string `json:"group_id,omitempty"`
	Step    uint32 `json:"step,omitempty"`

	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
}

// Payload is the plaintext structure inside a pairwise ciphertext: either chat
// text or a sender-key distribution for a group.
type Payload struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
	Key      []byte `json:"key,omitempty"` // serialized SenderKeyState
}

// Inbound is one processed incoming message. Err is set when the message could
// not be decrypted; the UI decides how to render an unavailable message.
type Inbound struct {
	From      string
	GroupID   string // empty for direct messages
	Plaintext []byte
	Timestamp int64
	Err       error
}
