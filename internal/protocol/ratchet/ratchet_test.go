package ratchet_test

import (
	"bytes"
	"errors"
	"testing"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/protocol/ratchet"
)

// newPair establishes sender and receiver states from one shared secret, the
// way X3DH would seed them: the receiver's ratchet pair is its signed prekey.
func newPair(t *testing.T) (alice, bob domain.RatchetState) {
	t.Helper()
	secret, err := crypto.Random(32)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	spk, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	alice, err = ratchet.InitSender(secret, spk.Pub)
	if err != nil {
		t.Fatalf("InitSender: %v", err)
	}
	bob = ratchet.InitReceiver(secret, spk)
	return alice, bob
}

type wireMsg struct {
	hdr   domain.RatchetHeader
	ct    []byte
	nonce []byte
}

func encrypt(t *testing.T, st *domain.RatchetState, plaintext string) wireMsg {
	t.Helper()
	hdr, ct, nonce, err := ratchet.Encrypt(st, []byte(plaintext))
	if err != nil {
		t.Fatalf("Encrypt(%q): %v", plaintext, err)
	}
	return wireMsg{hdr: hdr, ct: ct, nonce: nonce}
}

func decrypt(t *testing.T, st *domain.RatchetState, m wireMsg) string {
	t.Helper()
	pt, err := ratchet.Decrypt(st, m.hdr, m.ct, m.nonce)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	return string(pt)
}

func TestRoundTrip(t *testing.T) {
	for _, msg := range []string{"hello", "", "héllo wörld 🔒", "多字节文本"} {
		alice, bob := newPair(t)
		m := encrypt(t, &alice, msg)
		if got := decrypt(t, &bob, m); got != msg {
			t.Fatalf("got %q, want %q", got, msg)
		}
	}
}

func TestConversation_BothDirections(t *testing.T) {
	alice, bob := newPair(t)

	if got := decrypt(t, &bob, encrypt(t, &alice, "a1")); got != "a1" {
		t.Fatalf("got %q", got)
	}
	// Bob's reply triggers his first DH ratchet step.
	if got := decrypt(t, &alice, encrypt(t, &bob, "b1")); got != "b1" {
		t.Fatalf("got %q", got)
	}
	if got := decrypt(t, &bob, encrypt(t, &alice, "a2")); got != "a2" {
		t.Fatalf("got %q", got)
	}
	if got := decrypt(t, &alice, encrypt(t, &bob, "b2")); got != "b2" {
		t.Fatalf("got %q", got)
	}
}

func TestEncrypt_RequiresInitializedSession(t *testing.T) {
	secret, err := crypto.Random(32)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	spk, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bob := ratchet.InitReceiver(secret, spk)
	if _, _, _, err := ratchet.Encrypt(&bob, []byte("x")); !errors.Is(err, domain.ErrSessionNotInitialized) {
		t.Fatalf("got %v, want ErrSessionNotInitialized", err)
	}
}

func TestOutOfOrderDelivery(t *testing.T) {
	alice, bob := newPair(t)

	m0 := encrypt(t, &alice, "zero")
	m1 := encrypt(t, &alice, "one")
	m2 := encrypt(t, &alice, "two")

	if got := decrypt(t, &bob, m0); got != "zero" {
		t.Fatalf("got %q", got)
	}
	if got := decrypt(t, &bob, m2); got != "two" {
		t.Fatalf("got %q", got)
	}
	if n := len(bob.Skipped); n != 1 {
		t.Fatalf("skipped cache after m2: %d entries, want 1", n)
	}
	if got := decrypt(t, &bob, m1); got != "one" {
		t.Fatalf("got %q", got)
	}
	if n := len(bob.Skipped); n != 0 {
		t.Fatalf("skipped cache after m1: %d entries, want 0", n)
	}

	// The cached key was consumed; replaying m1 is permanently undecryptable.
	if _, err := ratchet.Decrypt(&bob, m1.hdr, m1.ct, m1.nonce); !errors.Is(err, domain.ErrMessageFromPast) {
		t.Fatalf("replay: got %v, want ErrMessageFromPast", err)
	}
}

func TestForwardSecrecyAcrossRatchetStep(t *testing.T) {
	alice, bob := newPair(t)

	m1 := encrypt(t, &alice, "a1")
	decrypt(t, &bob, m1)
	stale := bob.Clone() // compromised snapshot before the next ratchet

	// A full round trip advances both sides past the snapshot.
	decrypt(t, &alice, encrypt(t, &bob, "b1"))
	fresh := encrypt(t, &alice, "a2")

	// The old state cannot decrypt a message from the new chain.
	if _, err := ratchet.Decrypt(stale, fresh.hdr, fresh.ct, fresh.nonce); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("old state on new chain: got %v, want ErrDecryptionFailure", err)
	}

	// The advanced state cannot reach back across the ratchet either: the
	// old-chain message key is gone, never silently re-derivable.
	if got := decrypt(t, &bob, fresh); got != "a2" {
		t.Fatalf("got %q", got)
	}
	if _, err := ratchet.Decrypt(&bob, m1.hdr, m1.ct, m1.nonce); err == nil {
		t.Fatal("replaying an old-chain message after the ratchet must fail")
	}
}

func TestTamperDetection(t *testing.T) {
	alice, bob := newPair(t)
	m := encrypt(t, &alice, "payload")

	badCT := append([]byte(nil), m.ct...)
	badCT[0] ^= 0x01
	if _, err := ratchet.Decrypt(&bob, m.hdr, badCT, m.nonce); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered ciphertext: got %v, want ErrDecryptionFailure", err)
	}

	// Header is bound as AAD: altering it invalidates the message.
	badHdr := m.hdr
	badHdr.PN = m.hdr.PN + 7
	if _, err := ratchet.Decrypt(&bob, badHdr, m.ct, m.nonce); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered header: got %v, want ErrDecryptionFailure", err)
	}

	// Failed attempts must not have advanced the state.
	if got := decrypt(t, &bob, m); got != "payload" {
		t.Fatalf("got %q after failed attempts", got)
	}
}

func TestDecrypt_FailureLeavesStateUntouched(t *testing.T) {
	alice, bob := newPair(t)
	_ = encrypt(t, &alice, "skip me")
	m1 := encrypt(t, &alice, "target")

	before, err := bob.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	badCT := append([]byte(nil), m1.ct...)
	badCT[len(badCT)-1] ^= 0xFF
	if _, err := ratchet.Decrypt(&bob, m1.hdr, badCT, m1.nonce); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("got %v, want ErrDecryptionFailure", err)
	}
	after, err := bob.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("failed decrypt mutated session state")
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	alice, bob := newPair(t)
	decrypt(t, &bob, encrypt(t, &alice, "a1"))
	decrypt(t, &alice, encrypt(t, &bob, "b1"))

	// Leave one message skipped so the cache serializes too.
	_ = encrypt(t, &alice, "dropped")
	m := encrypt(t, &alice, "kept")
	decrypt(t, &bob, m)
	if len(bob.Skipped) != 1 {
		t.Fatalf("want 1 skipped entry, got %d", len(bob.Skipped))
	}

	blob, err := bob.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var restored domain.RatchetState
	if err := restored.UnmarshalBinary(blob); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	// The restored state behaves identically for the next exchange.
	next := encrypt(t, &alice, "after restore")
	if got := decrypt(t, &restored, next); got != "after restore" {
		t.Fatalf("got %q", got)
	}
}

func TestUnmarshal_RejectsGarbage(t *testing.T) {
	var st domain.RatchetState
	if err := st.UnmarshalBinary([]byte{0xFF, 0x01, 0x02}); err == nil {
		t.Fatal("want error for garbage blob")
	}
	if err := st.UnmarshalBinary(nil); err == nil {
		t.Fatal("want error for empty blob")
	}
}
