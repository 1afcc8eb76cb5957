package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"parley/internal/domain"
)

// GenerateEd25519 returns a fresh signing key pair.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], privKey)
	copy(pub[:], pubKey)
	return priv, pub, nil
}

// SignEd25519 signs msg with the identity signing key.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(priv.Slice(), msg)
}

// VerifyEd25519 reports whether sig is a valid signature of msg under pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(pub.Slice(), msg, sig)
}
