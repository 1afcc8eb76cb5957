package domain

import (
	"encoding/binary"
	"errors"
)

// MaxSkipped bounds the skipped-message-key caches. Once full, the oldest entry
// is evicted and its message becomes permanently undecryptable. This is the
// forward-secrecy trade-off for tolerating unordered delivery.
const MaxSkipped = 1000

// headerVersion tags the binary header encoding used as AEAD associated data.
const headerVersion = 1

// RatchetHeader accompanies each pairwise ciphertext and is bound as AEAD
// associated data, so tampering with it invalidates the message.
type RatchetHeader struct {
	DHPub []byte `json:"dh"` // sender's current ratchet public, 32 bytes
	PN    uint32 `json:"pn"` // length of the sender's previous sending chain
	N     uint32 `json:"n"`  // message number within the current chain
}

// Encode renders the header as fixed-width bytes: version, DH public, PN, N.
// Both sides must produce identical bytes for the AEAD tag to verify.
func (h RatchetHeader) Encode() []byte {
	out := make([]byte, 1+32+4+4)
	out[0] = headerVersion
	copy(out[1:33], h.DHPub)
	binary.BigEndian.PutUint32(out[33:37], h.PN)
	binary.BigEndian.PutUint32(out[37:41], h.N)
	return out
}

// SkippedKey is a message key cached during a ratchet fast-forward, consumed
// when its message arrives out of order.
type SkippedKey struct {
	DH [32]byte
	N  uint32
	MK []byte
}

// RatchetState holds Double Ratchet state for one ordered (local, remote) pair.
// It is mutated on every encrypt/decrypt and must be persisted after each call.
// Not safe for concurrent use; callers serialise access per conversation.
type RatchetState struct {
	RootKey []byte

	// Our current ratchet pair.
	DHPriv X25519Private
	DHPub  X25519Public

	// Remote ratchet public; nil until the first inbound ratchet step.
	PeerDH []byte

	SendCK []byte // nil until the sending chain exists
	RecvCK []byte // nil until the receiving chain exists

	Ns, Nr, PN uint32

	// Skipped message keys, oldest first.
	Skipped []SkippedKey

	// Handshake header attached to outbound messages until the peer's first
	// reply confirms the session on their side. Initiator only.
	PendingHandshake *X3DHHeader
}

// Clone returns a deep copy. Decrypt works on a copy and commits only on
// success so a failed call leaves the caller's state untouched.
func (s *RatchetState) Clone() *RatchetState {
	out := &RatchetState{
		RootKey: append([]byte(nil), s.RootKey...),
		DHPriv:  s.DHPriv,
		DHPub:   s.DHPub,
		Ns:      s.Ns,
		Nr:      s.Nr,
		PN:      s.PN,
	}
	if s.PeerDH != nil {
		out.PeerDH = append([]byte(nil), s.PeerDH...)
	}
	if s.SendCK != nil {
		out.SendCK = append([]byte(nil), s.SendCK...)
	}
	if s.RecvCK != nil {
		out.RecvCK = append([]byte(nil), s.RecvCK...)
	}
	if s.Skipped != nil {
		out.Skipped = make([]SkippedKey, len(s.Skipped))
		for i, sk := range s.Skipped {
			out.Skipped[i] = SkippedKey{DH: sk.DH, N: sk.N, MK: append([]byte(nil), sk.MK...)}
		}
	}
	if s.PendingHandshake != nil {
		h := *s.PendingHandshake
		out.PendingHandshake = &h
	}
	return out
}

// TakeSkipped removes and returns the cached message key for (dh, n), if any.
func (s *RatchetState) TakeSkipped(dh []byte, n uint32) ([]byte, bool) {
	if len(dh) != 32 {
		return nil, false
	}
	for i, sk := range s.Skipped {
		if sk.N == n && sk.DH == [32]byte(dh) {
			mk := sk.MK
			s.Skipped = append(s.Skipped[:i], s.Skipped[i+1:]...)
			return mk, true
		}
	}
	return nil, false
}

// PutSkipped caches a message key, evicting the oldest entry when full.
func (s *RatchetState) PutSkipped(dh X25519Public, n uint32, mk []byte) {
	if len(s.Skipped) >= MaxSkipped {
		s.Skipped = s.Skipped[1:]
	}
	s.Skipped = append(s.Skipped, SkippedKey{DH: dh, N: n, MK: mk})
}

// SkippedStepKey is a cached sender-key message key for an out-of-order step.
type SkippedStepKey struct {
	Step uint32
	MK   []byte
}

// SenderKeyState is the symmetric chain for one (group, sender) pair. The
// sender's own instance is generated locally and distributed to members over
// pairwise sessions; every other instance arrives in a distribution message.
type SenderKeyState struct {
	ChainKey []byte
	Step     uint32
	Skipped  []SkippedStepKey // oldest first
}

// Clone returns a deep copy, used for atomic decrypt commits.
func (s *SenderKeyState) Clone() *SenderKeyState {
	out := &SenderKeyState{
		ChainKey: append([]byte(nil), s.ChainKey...),
		Step:     s.Step,
	}
	if s.Skipped != nil {
		out.Skipped = make([]SkippedStepKey, len(s.Skipped))
		for i, sk := range s.Skipped {
			out.Skipped[i] = SkippedStepKey{Step: sk.Step, MK: append([]byte(nil), sk.MK...)}
		}
	}
	return out
}

// TakeSkipped removes and returns the cached key for step, if present.
func (s *SenderKeyState) TakeSkipped(step uint32) ([]byte, bool) {
	for i, sk := range s.Skipped {
		if sk.Step == step {
			mk := sk.MK
			s.Skipped = append(s.Skipped[:i], s.Skipped[i+1:]...)
			return mk, true
		}
	}
	return nil, false
}

// PutSkipped caches a step key, evicting the oldest when full.
func (s *SenderKeyState) PutSkipped(step uint32, mk []byte) {
	if len(s.Skipped) >= MaxSkipped {
		s.Skipped = s.Skipped[1:]
	}
	s.Skipped = append(s.Skipped, SkippedStepKey{Step: step, MK: mk})
}

var errBadHeader = errors.New("malformed ratchet header")

// DecodeRatchetHeader parses the fixed-width header encoding.
func DecodeRatchetHeader(b []byte) (RatchetHeader, error) {
	if len(b) != 1+32+4+4 || b[0] != headerVersion {
		return RatchetHeader{}, errBadHeader
	}
	return RatchetHeader{
		DHPub: append([]byte(nil), b[1:33]...),
		PN:    binary.BigEndian.Uint32(b[33:37]),
		N:     binary.BigEndian.Uint32(b[37:41]),
	}, nil
}

// EncodeStep renders a sender-key step header for use as AEAD associated data.
func EncodeStep(step uint32) []byte {
	out := make([]byte, 5)
	out[0] = headerVersion
	binary.BigEndian.PutUint32(out[1:], step)
	return out
}
