package crypto_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"parley/internal/crypto"
	"parley/internal/domain"
)

func TestDH_SharedSecretAgrees(t *testing.T) {
	a, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	b, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	ab, err := crypto.DH(a.Priv, b.Pub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	ba, err := crypto.DH(b.Priv, a.Pub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	if ab != ba {
		t.Fatal("DH outputs differ")
	}
}

func TestSealOpen_RoundTripAndTamper(t *testing.T) {
	key, err := crypto.Random(32)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	aad := []byte("header")
	ct, nonce, err := crypto.Seal(key, []byte("hello"), aad)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	pt, err := crypto.Open(key, ct, nonce, aad)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "hello" {
		t.Fatalf("got %q, want %q", pt, "hello")
	}

	// Flipping a ciphertext byte must fail with the typed error.
	bad := append([]byte(nil), ct...)
	bad[0] ^= 0x01
	if _, err := crypto.Open(key, bad, nonce, aad); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered ciphertext: got %v, want ErrDecryptionFailure", err)
	}

	// Flipping an AAD byte must fail too.
	badAAD := append([]byte(nil), aad...)
	badAAD[0] ^= 0x01
	if _, err := crypto.Open(key, ct, nonce, badAAD); !errors.Is(err, domain.ErrDecryptionFailure) {
		t.Fatalf("tampered aad: got %v, want ErrDecryptionFailure", err)
	}
}

func TestKEM_EncapsulateDecapsulate(t *testing.T) {
	kp, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	shared, ct, err := crypto.Encapsulate(kp.Pub)
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}
	got, err := crypto.Decapsulate(kp.Priv, ct)
	if err != nil {
		t.Fatalf("Decapsulate: %v", err)
	}
	if !bytes.Equal(shared[:], got[:]) {
		t.Fatal("KEM shared secrets differ")
	}
}

func TestSafetyNumber_OrderIndependent(t *testing.T) {
	a, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	b, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	ab := crypto.SafetyNumber(a.Pub, b.Pub)
	ba := crypto.SafetyNumber(b.Pub, a.Pub)
	if ab != ba {
		t.Fatalf("safety numbers differ:\n%s\n%s", ab, ba)
	}
	if groups := len(strings.Fields(ab)); groups != 12 {
		t.Fatalf("want 12 groups, got %d (%q)", groups, ab)
	}
}

func TestSignEd25519_Verifies(t *testing.T) {
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	msg := []byte("signed prekey bytes")
	sig := crypto.SignEd25519(priv, msg)
	if !crypto.VerifyEd25519(pub, msg, sig) {
		t.Fatal("signature did not verify")
	}
	if crypto.VerifyEd25519(pub, []byte("other"), sig) {
		t.Fatal("signature verified for wrong message")
	}
}
