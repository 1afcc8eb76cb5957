package x3dh

import (
	"fmt"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/util/memzero"
)

const (
	hkdfInfo   = "parley/x3dh/v1"
	secretSize = 32
)

// GenerateBundle produces the device's private prekey material: a signed
// prekey pair (signed with the identity's Ed25519 key) and a KEM prekey pair,
// alongside the existing identity pair.
func GenerateBundle(id domain.Identity) (domain.PreKeyBundle, error) {
	spk, err := crypto.GenerateX25519()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	kem, err := crypto.GenerateX25519()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	return domain.PreKeyBundle{
		Identity:        domain.KeyPair{Priv: id.XPriv, Pub: id.XPub},
		SignedPreKey:    spk,
		SignedPreKeySig: crypto.SignEd25519(id.EdPriv, spk.Pub.Slice()),
		KEMPreKey:       kem,
	}, nil
}

// PublicBundle renders the wire form of a bundle for the relay directory.
func PublicBundle(userID string, id domain.Identity, b domain.PreKeyBundle) domain.PreKeyBundlePublic {
	return domain.PreKeyBundlePublic{
		UserID:          userID,
		IdentityKey:     crypto.B64(b.Identity.Pub.Slice()),
		SigningKey:      crypto.B64(id.EdPub.Slice()),
		SignedPreKey:    crypto.B64(b.SignedPreKey.Pub.Slice()),
		SignedPreKeySig: crypto.B64(b.SignedPreKeySig),
		KyberPreKey:     crypto.B64(b.KEMPreKey.Pub.Slice()),
	}
}

// parsedBundle is the decoded, validated form of a wire bundle.
type parsedBundle struct {
	identity domain.X25519Public
	signing  domain.Ed25519Public
	spk      domain.X25519Public
	spkSig   []byte
	kem      domain.X25519Public
}

func parseBundle(b domain.PreKeyBundlePublic) (parsedBundle, error) {
	var out parsedBundle
	if b.IdentityKey == "" || b.SignedPreKey == "" || b.KyberPreKey == "" {
		return out, fmt.Errorf("%w: missing fields", domain.ErrInvalidBundle)
	}
	ik, err := crypto.B64Key(b.IdentityKey)
	if err != nil {
		return out, fmt.Errorf("%w: identity key: %v", domain.ErrInvalidBundle, err)
	}
	spk, err := crypto.B64Key(b.SignedPreKey)
	if err != nil {
		return out, fmt.Errorf("%w: signed prekey: %v", domain.ErrInvalidBundle, err)
	}
	kem, err := crypto.B64Key(b.KyberPreKey)
	if err != nil {
		return out, fmt.Errorf("%w: kem prekey: %v", domain.ErrInvalidBundle, err)
	}
	out.identity = ik
	out.spk = spk
	out.kem = kem
	if out.identity.IsZero() || out.spk.IsZero() || out.kem.IsZero() {
		return out, fmt.Errorf("%w: zero public key", domain.ErrInvalidBundle)
	}

	if b.SigningKey != "" {
		sk, err := crypto.B64Key(b.SigningKey)
		if err != nil {
			return out, fmt.Errorf("%w: signing key: %v", domain.ErrInvalidBundle, err)
		}
		out.signing = sk
		if b.SignedPreKeySig == "" {
			return out, fmt.Errorf("%w: missing signed prekey signature", domain.ErrInvalidBundle)
		}
		sig, err := crypto.B64Decode(b.SignedPreKeySig)
		if err != nil {
			return out, fmt.Errorf("%w: signed prekey signature: %v", domain.ErrInvalidBundle, err)
		}
		out.spkSig = sig
	}
	return out, nil
}

// VerifySignedPreKey checks the bundle's prekey signature when a signing key
// is present.
func VerifySignedPreKey(b domain.PreKeyBundlePublic) error {
	pb, err := parseBundle(b)
	if err != nil {
		return err
	}
	if pb.spkSig == nil {
		return nil
	}
	if !crypto.VerifyEd25519(pb.signing, pb.spk.Slice(), pb.spkSig) {
		return fmt.Errorf("%w: signed prekey signature does not verify", domain.ErrInvalidBundle)
	}
	return nil
}

// Initiator runs the agreement against a peer bundle. It returns the 32-byte
// shared secret and the header the responder needs to reproduce it.
func Initiator(our domain.Identity, peer domain.PreKeyBundlePublic) ([]byte, domain.X3DHHeader, error) {
	pb, err := parseBundle(peer)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}
	if pb.spkSig != nil && !crypto.VerifyEd25519(pb.signing, pb.spk.Slice(), pb.spkSig) {
		return nil, domain.X3DHHeader{}, fmt.Errorf("%w: signed prekey signature does not verify", domain.ErrInvalidBundle)
	}

	eph, err := crypto.GenerateX25519()
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}

	dh1, err := crypto.DH(our.XPriv, pb.spk) // DH(IK_A, SPK_B)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}
	dh2, err := crypto.DH(eph.Priv, pb.identity) // DH(EK_A, IK_B)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}
	dh3, err := crypto.DH(eph.Priv, pb.spk) // DH(EK_A, SPK_B)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}
	kemSS, kemCT, err := crypto.Encapsulate(pb.kem)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}

	secret, err := derive(dh1, dh2, dh3, kemSS, our.XPub, pb.identity)
	if err != nil {
		return nil, domain.X3DHHeader{}, err
	}

	hdr := domain.X3DHHeader{
		EK: crypto.B64(eph.Pub.Slice()),
		IK: crypto.B64(our.XPub.Slice()),
		PQ: crypto.B64(kemCT[:]),
	}
	return secret, hdr, nil
}

// Responder recomputes the initiator's secret from our private bundle material
// and the received header. The output is byte-identical to the initiator's.
func Responder(our domain.Identity, signedPreKey, kemPreKey domain.KeyPair, hdr domain.X3DHHeader) ([]byte, error) {
	ek, err := crypto.B64Key(hdr.EK)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", domain.ErrInvalidBundle, err)
	}
	ik, err := crypto.B64Key(hdr.IK)
	if err != nil {
		return nil, fmt.Errorf("%w: initiator identity key: %v", domain.ErrInvalidBundle, err)
	}
	ct, err := crypto.B64Key(hdr.PQ)
	if err != nil {
		return nil, fmt.Errorf("%w: kem ciphertext: %v", domain.ErrInvalidBundle, err)
	}

	dh1, err := crypto.DH(signedPreKey.Priv, domain.X25519Public(ik)) // DH(SPK_B, IK_A)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(our.XPriv, domain.X25519Public(ek)) // DH(IK_B, EK_A)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(signedPreKey.Priv, domain.X25519Public(ek)) // DH(SPK_B, EK_A)
	if err != nil {
		return nil, err
	}
	kemSS, err := crypto.Decapsulate(kemPreKey.Priv, ct)
	if err != nil {
		return nil, err
	}

	return derive(dh1, dh2, dh3, kemSS, domain.X25519Public(ik), our.XPub)
}

// derive concatenates the four secrets in protocol order and HKDFs them with
// the two identity publics (initiator first) as salt.
func derive(dh1, dh2, dh3, kem [32]byte, initiatorIK, responderIK domain.X25519Public) ([]byte, error) {
	ikm := make([]byte, 0, 32*4)
	ikm = append(ikm, dh1[:]...)
	ikm = append(ikm, dh2[:]...)
	ikm = append(ikm, dh3[:]...)
	ikm = append(ikm, kem[:]...)
	defer memzero.Zero(ikm)

	salt := make([]byte, 0, 64)
	salt = append(salt, initiatorIK.Slice()...)
	salt = append(salt, responderIK.Slice()...)

	return crypto.HKDF(ikm, salt, []byte(hkdfInfo), secretSize)
}
