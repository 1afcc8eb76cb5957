package senderkey_test

import (
	"bytes"
	"errors"
	"testing"

	"parley/internal/domain"
	"parley/internal/protocol/senderkey"
)

type groupMsg struct {
	ct    []byte
	nonce []byte
	step  uint32
}

func encrypt(t *testing.T, st *domain.SenderKeyState, plaintext string) groupMsg {
	t.Helper()
	ct, nonce, step, err := senderkey.Encrypt(st, []byte(plaintext))
	if err != nil {
		t.Fatalf("Encrypt(%q): %v", plaintext, err)
	}
	return groupMsg{ct: ct, nonce: nonce, step: step}
}

func decrypt(t *testing.T, st *domain.SenderKeyState, m groupMsg) string {
	t.Helper()
	pt, err := senderkey.Decrypt(st, m.ct, m.nonce, m.step)
	if err != nil {
		t.Fatalf("Decrypt(step %d): %v", m.step, err)
	}
	return string(pt)
}

// distribute simulates the receiver side: the serialized state a member gets
// in a distribution message.
func distribute(t *testing.T, st domain.SenderKeyState) domain.SenderKeyState {
	t.Helper()
	blob, err := st.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var out domain.SenderKeyState
	if err := out.UnmarshalBinary(blob); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	return out
}

func TestRoundTripWithSkip(t *testing.T) {
	sender, err := senderkey.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	receiver := distribute(t, sender)

	m0 := encrypt(t, &sender, "zero")
	m1 := encrypt(t, &sender, "one")
	m2 := encrypt(t, &sender, "two")
	if m0.step != 0 || m1.step != 1 || m2.step != 2 {
		t.Fatalf("steps %d,%d,%d, want 0,1,2", m0.step, m1.step, m2.step)
	}

	// Deliver step 2 first: steps 0 and 1 are cached during fast-forward.
	if got := decrypt(t, &receiver, m2); got != "two" {
		t.Fatalf("got %q", got)
	}
	if n := len(receiver.Skipped); n != 2 {
		t.Fatalf("skipped cache: %d entries, want 2", n)
	}
	if got := decrypt(t, &receiver, m0); got != "zero" {
		t.Fatalf("got %q", got)
	}
	if got := decrypt(t, &receiver, m1); got != "one" {
		t.Fatalf("got %q", got)
	}
	if n := len(receiver.Skipped); n != 0 {
		t.Fatalf("skipped cache: %d entries, want 0", n)
	}

	// Step 0's key was consumed; a second delivery is gone for good.
	if _, err := senderkey.Decrypt(&receiver, m0.ct, m0.nonce, m0.step); !errors.Is(err, domain.ErrMessageFromPast) {
		t.Fatalf("replay: got %v, want ErrMessageFromPast", err)
	}
}

func TestEveryMessageRatchetsTheChain(t *testing.T) {
	sender, err := senderkey.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	before := append([]byte(nil), sender.ChainKey...)
	_ = encrypt(t, &sender, "x")
	if bytes.Equal(before, sender.ChainKey) {
		t.Fatal("chain key did not advance on encrypt")
	}
	_ = encrypt(t, &sender, "y")
	if sender.Step != 2 {
		t.Fatalf("step %d, want 2", sender.Step)
	}
}

func TestTamperDetection(t *testing.T) {
	sender, err := senderkey.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	receiver := distribute(t, sender)
	m := encrypt(t, &sender, "group payload")

	badCT := append([]byte(nil), m.ct...)
	badCT[0] ^= 0x01
	if _, err := senderkey.Decrypt(&receiver, badCT, m.nonce, m.step); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered ciphertext: got %v, want ErrDecryptionFailure", err)
	}

	// The step header is bound as AAD.
	if _, err := senderkey.Decrypt(&receiver, m.ct, m.nonce, m.step+1); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered step: got %v, want ErrDecryptionFailure", err)
	}

	// Failed attempts must not advance the chain.
	if got := decrypt(t, &receiver, m); got != "group payload" {
		t.Fatalf("got %q after failed attempts", got)
	}
}

func TestSerializationMidStream(t *testing.T) {
	sender, err := senderkey.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	receiver := distribute(t, sender)

	decrypt(t, &receiver, encrypt(t, &sender, "first"))
	_ = encrypt(t, &sender, "dropped")
	m2 := encrypt(t, &sender, "third")
	decrypt(t, &receiver, m2)
	if len(receiver.Skipped) != 1 {
		t.Fatalf("want 1 skipped entry, got %d", len(receiver.Skipped))
	}

	restored := distribute(t, receiver)
	next := encrypt(t, &sender, "after restore")
	if got := decrypt(t, &restored, next); got != "after restore" {
		t.Fatalf("got %q", got)
	}
}

func TestSkippedCacheEviction(t *testing.T) {
	sender, err := senderkey.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	receiver := distribute(t, sender)

	// Push more skipped steps than the cache holds; the oldest fall out.
	var last groupMsg
	for i := 0; i < domain.MaxSkipped+2; i++ {
		last = encrypt(t, &sender, "filler")
	}
	if got := decrypt(t, &receiver, last); got != "filler" {
		t.Fatalf("got %q", got)
	}
	if n := len(receiver.Skipped); n != domain.MaxSkipped {
		t.Fatalf("skipped cache: %d entries, want %d", n, domain.MaxSkipped)
	}
	if _, ok := receiver.TakeSkipped(0); ok {
		t.Fatal("step 0 should have been evicted")
	}
	if _, ok := receiver.TakeSkipped(uint32(domain.MaxSkipped)); !ok {
		t.Fatal("newest skipped step missing")
	}
}
