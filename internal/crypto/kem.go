package crypto

import (
	"crypto/rand"
	"errors"

	circlx "github.com/cloudflare/circl/dh/x25519"

	"parley/internal/domain"
)

// KEM placeholder. The key agreement mixes in one encapsulated secret where a
// post-quantum KEM (e.g. ML-KEM) would sit; until that lands the encapsulation
// is plain X25519: the ciphertext is an ephemeral public key and the shared
// secret is the DH output. Wire sizes therefore stay at 32 bytes.

// KEMCiphertextSize is the size of the placeholder encapsulation.
const KEMCiphertextSize = circlx.Size

var errLowOrderPoint = errors.New("kem: low-order public key")

// Encapsulate derives a shared secret against peerPub and returns the
// ciphertext the peer needs to recompute it.
func Encapsulate(peerPub domain.X25519Public) (shared [32]byte, ciphertext [KEMCiphertextSize]byte, err error) {
	var ephPriv, ephPub, peer circlx.Key
	if _, err = rand.Read(ephPriv[:]); err != nil {
		return shared, ciphertext, err
	}
	circlx.KeyGen(&ephPub, &ephPriv)
	copy(peer[:], peerPub[:])

	var ss circlx.Key
	if !circlx.Shared(&ss, &ephPriv, &peer) {
		return shared, ciphertext, errLowOrderPoint
	}
	copy(shared[:], ss[:])
	copy(ciphertext[:], ephPub[:])
	return shared, ciphertext, nil
}

// Decapsulate recomputes the shared secret from our KEM prekey private and the
// ciphertext produced by Encapsulate.
func Decapsulate(priv domain.X25519Private, ciphertext [KEMCiphertextSize]byte) (shared [32]byte, err error) {
	var sk, ct, ss circlx.Key
	copy(sk[:], priv[:])
	copy(ct[:], ciphertext[:])
	if !circlx.Shared(&ss, &sk, &ct) {
		return shared, errLowOrderPoint
	}
	copy(shared[:], ss[:])
	return shared, nil
}
