package ratchet

import (
	"bytes"
	"fmt"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/util/memzero"
)

// HKDF domain-separation labels. Chain advance and message-key extraction use
// distinct info strings so one can never be derived from the other's output.
const (
	infoRoot  = "parley/ratchet/root"
	infoChain = "parley/ratchet/chain"
	infoMsg   = "parley/ratchet/msg"
)

// InitSender seeds a session from the X3DH secret on the initiator side. One
// DH ratchet step against the peer's signed prekey populates the sending chain
// immediately, so the initiator can message before any reply.
func InitSender(secret []byte, peerSignedPreKey domain.X25519Public) (domain.RatchetState, error) {
	dhPair, err := crypto.GenerateX25519()
	if err != nil {
		return domain.RatchetState{}, err
	}
	dh, err := crypto.DH(dhPair.Priv, peerSignedPreKey)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rk, sendCK, err := kdfRoot(secret, dh[:])
	memzero.Zero(dh[:])
	if err != nil {
		return domain.RatchetState{}, err
	}
	return domain.RatchetState{
		RootKey: rk,
		DHPriv:  dhPair.Priv,
		DHPub:   dhPair.Pub,
		SendCK:  sendCK,
	}, nil
}

// InitReceiver seeds a session from the X3DH secret on the responder side.
// Only the root key is set; the receiving chain appears when the first inbound
// header triggers a DH ratchet. The responder's initial ratchet pair is its
// signed prekey pair, which the initiator already ratcheted against.
func InitReceiver(secret []byte, ourSignedPreKey domain.KeyPair) domain.RatchetState {
	return domain.RatchetState{
		RootKey: append([]byte(nil), secret...),
		DHPriv:  ourSignedPreKey.Priv,
		DHPub:   ourSignedPreKey.Pub,
	}
}

// Encrypt derives the next message key from the sending chain, encrypts with
// the header bound as associated data, and advances Ns.
func Encrypt(st *domain.RatchetState, plaintext []byte) (domain.RatchetHeader, []byte, []byte, error) {
	if len(st.SendCK) == 0 {
		return domain.RatchetHeader{}, nil, nil, domain.ErrSessionNotInitialized
	}
	mk, next, err := kdfChain(st.SendCK)
	if err != nil {
		return domain.RatchetHeader{}, nil, nil, err
	}
	hdr := domain.RatchetHeader{DHPub: st.DHPub.Slice(), PN: st.PN, N: st.Ns}

	ct, nonce, err := crypto.Seal(mk, plaintext, hdr.Encode())
	memzero.Zero(mk)
	if err != nil {
		return domain.RatchetHeader{}, nil, nil, err
	}
	st.SendCK = next
	st.Ns++
	return hdr, ct, nonce, nil
}

// Decrypt opens an inbound message, handling cached skipped keys, DH ratchet
// steps on a new remote public, and receive-chain fast-forwards. On any
// failure the caller's state is left untouched.
func Decrypt(st *domain.RatchetState, hdr domain.RatchetHeader, ciphertext, nonce []byte) ([]byte, error) {
	if len(hdr.DHPub) != 32 {
		return nil, fmt.Errorf("%w: bad header DH public", domain.ErrDecryptionFailure)
	}
	work := st.Clone()

	// A message from an already-passed chain position decrypts with its
	// cached key, which is consumed on use.
	if mk, ok := work.TakeSkipped(hdr.DHPub, hdr.N); ok {
		pt, err := crypto.Open(mk, ciphertext, nonce, hdr.Encode())
		memzero.Zero(mk)
		if err != nil {
			return nil, err
		}
		*st = *work
		return pt, nil
	}

	// New remote ratchet public: finish the old receive chain up to hdr.PN,
	// caching the keys, then step the DH ratchet.
	if work.PeerDH == nil || !bytes.Equal(work.PeerDH, hdr.DHPub) {
		if work.RecvCK != nil {
			if err := skipUntil(work, hdr.PN); err != nil {
				return nil, err
			}
		}
		if err := dhRatchet(work, hdr.DHPub); err != nil {
			return nil, err
		}
	} else if hdr.N < work.Nr {
		// Same chain but the position was already consumed and its key is no
		// longer cached.
		return nil, domain.ErrMessageFromPast
	}

	// Fast-forward the current receive chain to the message's position.
	if err := skipUntil(work, hdr.N); err != nil {
		return nil, err
	}

	mk, next, err := kdfChain(work.RecvCK)
	if err != nil {
		return nil, err
	}
	pt, err := crypto.Open(mk, ciphertext, nonce, hdr.Encode())
	memzero.Zero(mk)
	if err != nil {
		return nil, err
	}
	work.RecvCK = next
	work.Nr++
	*st = *work
	return pt, nil
}

// dhRatchet performs the two-step ratchet: derive the new receiving chain from
// the new remote public, then a fresh own pair and a new sending chain.
func dhRatchet(st *domain.RatchetState, newPeer []byte) error {
	peer := domain.MustX25519Public(newPeer)

	dh1, err := crypto.DH(st.DHPriv, peer)
	if err != nil {
		return err
	}
	rk1, recvCK, err := kdfRoot(st.RootKey, dh1[:])
	memzero.Zero(dh1[:])
	if err != nil {
		return err
	}

	newPair, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh2, err := crypto.DH(newPair.Priv, peer)
	if err != nil {
		return err
	}
	rk2, sendCK, err := kdfRoot(rk1, dh2[:])
	memzero.Zero(dh2[:])
	if err != nil {
		return err
	}

	st.PN = st.Ns
	st.Ns, st.Nr = 0, 0
	st.RootKey = rk2
	st.DHPriv, st.DHPub = newPair.Priv, newPair.Pub
	st.PeerDH = append([]byte(nil), newPeer...)
	st.RecvCK, st.SendCK = recvCK, sendCK
	return nil
}

// skipUntil advances the receive chain to position until, caching every
// derived message key for out-of-order arrival.
func skipUntil(st *domain.RatchetState, until uint32) error {
	if st.Nr >= until {
		return nil
	}
	if st.RecvCK == nil {
		return domain.ErrSessionNotInitialized
	}
	peer := domain.MustX25519Public(st.PeerDH)
	for st.Nr < until {
		mk, next, err := kdfChain(st.RecvCK)
		if err != nil {
			return err
		}
		st.PutSkipped(peer, st.Nr, mk)
		st.RecvCK = next
		st.Nr++
	}
	return nil
}

// kdfRoot advances the root key with a DH output, yielding a new root and a
// chain key.
func kdfRoot(rk, dh []byte) (newRK, ck []byte, err error) {
	out, err := crypto.HKDF(dh, rk, []byte(infoRoot), 64)
	if err != nil {
		return nil, nil, err
	}
	return out[:32], out[32:], nil
}

// kdfChain derives the message key and the next chain key from ck via two
// domain-separated expansions. The chain KDF is one-way: a chain key never
// reveals any earlier message key.
func kdfChain(ck []byte) (mk, next []byte, err error) {
	mk, err = crypto.HKDF(ck, nil, []byte(infoMsg), 32)
	if err != nil {
		return nil, nil, err
	}
	next, err = crypto.HKDF(ck, nil, []byte(infoChain), 32)
	if err != nil {
		return nil, nil, err
	}
	return mk, next, nil
}
