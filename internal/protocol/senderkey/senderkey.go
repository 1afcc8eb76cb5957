package senderkey

import (
	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/util/memzero"
)

// HKDF domain-separation labels, distinct from the pairwise ratchet's.
const (
	infoChain = "parley/senderkey/chain"
	infoMsg   = "parley/senderkey/msg"
)

// Generate returns a fresh sender-key chain at step 0.
func Generate() (domain.SenderKeyState, error) {
	ck, err := crypto.Random(32)
	if err != nil {
		return domain.SenderKeyState{}, err
	}
	return domain.SenderKeyState{ChainKey: ck}, nil
}

// Encrypt seals plaintext under the current step's message key, binding the
// step header as associated data, and advances the chain.
func Encrypt(st *domain.SenderKeyState, plaintext []byte) (ciphertext, nonce []byte, step uint32, err error) {
	if len(st.ChainKey) == 0 {
		return nil, nil, 0, domain.ErrSessionNotInitialized
	}
	mk, next, err := kdfChain(st.ChainKey)
	if err != nil {
		return nil, nil, 0, err
	}
	step = st.Step
	ciphertext, nonce, err = crypto.Seal(mk, plaintext, domain.EncodeStep(step))
	memzero.Zero(mk)
	if err != nil {
		return nil, nil, 0, err
	}
	st.ChainKey = next
	st.Step++
	return ciphertext, nonce, step, nil
}

// Decrypt opens a group message at the given step. Steps behind the chain use
// a cached skipped key (consumed on use); steps ahead fast-forward the chain,
// caching every intermediate key. Failures leave the state untouched.
func Decrypt(st *domain.SenderKeyState, ciphertext, nonce []byte, step uint32) ([]byte, error) {
	if len(st.ChainKey) == 0 {
		return nil, domain.ErrSessionNotInitialized
	}
	work := st.Clone()

	if step < work.Step {
		mk, ok := work.TakeSkipped(step)
		if !ok {
			return nil, domain.ErrMessageFromPast
		}
		pt, err := crypto.Open(mk, ciphertext, nonce, domain.EncodeStep(step))
		memzero.Zero(mk)
		if err != nil {
			return nil, err
		}
		*st = *work
		return pt, nil
	}

	// Fast-forward to the target step, caching the keys in between.
	for work.Step < step {
		mk, next, err := kdfChain(work.ChainKey)
		if err != nil {
			return nil, err
		}
		work.PutSkipped(work.Step, mk)
		work.ChainKey = next
		work.Step++
	}

	mk, next, err := kdfChain(work.ChainKey)
	if err != nil {
		return nil, err
	}
	pt, err := crypto.Open(mk, ciphertext, nonce, domain.EncodeStep(step))
	memzero.Zero(mk)
	if err != nil {
		return nil, err
	}
	work.ChainKey = next
	work.Step = step + 1
	*st = *work
	return pt, nil
}

// kdfChain derives the message key and next chain key via two domain-separated
// expansions; the chain only moves forward.
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
