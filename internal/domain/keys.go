package domain

import "fmt"

// ------------- X25519 -------------

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// IsZero reports whether the key is all zero bytes (unset).
func (k X25519Public) IsZero() bool {
	var v byte
	for _, b := range k {
		v |= b
	}
	return v == 0
}

func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 public: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// ------------- Ed25519 -------------

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// ------------- Pairs and identity -------------

// KeyPair is an X25519 private/public pair. Pub is always the public point of Priv.
type KeyPair struct {
	Priv X25519Private
	Pub  X25519Public
}

// Identity holds the device's long-term keys: an X25519 pair for Diffie-Hellman
// (X3DH and Double Ratchet) and an Ed25519 pair for signing prekeys.
type Identity struct {
	XPriv  X25519Private
	XPub   X25519Public
	EdPriv Ed25519Private
	EdPub  Ed25519Public
}

// PreKeyBundle is the device's private prekey material, created once per device
// at first run. The identity pair persists for the device lifetime; the signed
// and KEM prekeys are rotatable.
type PreKeyBundle struct {
	Identity        KeyPair
	SignedPreKey    KeyPair
	SignedPreKeySig []byte
	KEMPreKey       KeyPair
}
