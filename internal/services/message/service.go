package message

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parley/internal/domain"
	"parley/internal/protocol/ratchet"
	"parley/internal/protocol/x3dh"
)

// Service sends and receives messages over the relay using the pairwise
// ratchet.
//
// High-level flow:
//   - Send: establish or load the session, encrypt the payload, persist the
//     advanced state, then post. The handshake header rides on every outbound
//     envelope until the peer's first reply.
//   - Receive: fetch envelopes, bootstrap a session from the handshake header
//     when needed, decrypt, persist state after every mutation, then ack. A
//     message that fails to decrypt is reported in its slot; it never aborts
//     the rest of the batch.
type Service struct {
	ids      domain.IdentityStore
	prekeys  domain.PreKeyStore
	sessions domain.SessionStore
	initiate domain.SessionService
	relay    domain.RelayClient

	group domain.GroupHandler
}

// New constructs a message service with the given stores and relay client.
// The group handler is attached separately to break the construction cycle
// between messaging and groups.
func New(
	ids domain.IdentityStore,
	prekeys domain.PreKeyStore,
	sessions domain.SessionStore,
	initiate domain.SessionService,
	relay domain.RelayClient,
) *Service {
	return &Service{
		ids:      ids,
		prekeys:  prekeys,
		sessions: sessions,
		initiate: initiate,
		relay:    relay,
	}
}

// SetGroupHandler attaches the group pipeline. Without one, group envelopes
// and distributions are reported as errors in their inbound slots.
func (s *Service) SetGroupHandler(h domain.GroupHandler) { s.group = h }

// Send encrypts text for one peer and posts it.
func (s *Service) Send(ctx context.Context, passphrase, from, to, text string) error {
	return s.SendPayload(ctx, passphrase, from, to, domain.Payload{
		Type: domain.PayloadText,
		Text: text,
	})
}

// SendPayload encrypts a typed payload for one peer and posts it. First
// contact runs the key agreement implicitly.
func (s *Service) SendPayload(ctx context.Context, passphrase, from, to string, p domain.Payload) error {
	st, err := s.initiate.Initiate(ctx, passphrase, from, to)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(p)
	if err != nil {
		return err
	}
	hdr, ct, nonce, err := ratchet.Encrypt(&st, plaintext)
	if err != nil {
		return err
	}

	// Persist the advanced state before posting so a crash cannot reuse a
	// message key.
	if err := s.sessions.SaveSession(from, to, st); err != nil {
		return err
	}

	env := domain.Envelope{
		Kind:       domain.KindDirect,
		From:       from,
		To:         to,
		Header:     &hdr,
		X3DH:       st.PendingHandshake,
		Ciphertext: ct,
		Nonce:      nonce,
		Timestamp:  time.Now().Unix(),
	}
	return s.relay.SendEnvelope(ctx, env)
}

// Receive fetches pending envelopes, processes each, and acks the batch.
//
// Every envelope yields one Inbound slot. Failures are per-message: a
// tampered or undecryptable envelope sets Err on its slot and processing
// continues, because ratchet decryption is not retryable and requeueing a
// poison message would wedge the mailbox.
func (s *Service) Receive(ctx context.Context, passphrase, userID string, limit int) ([]domain.Inbound, error) {
	envs, err := s.relay.FetchEnvelopes(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Inbound, 0, len(envs))
	for _, env := range envs {
		out = append(out, s.process(passphrase, userID, env))
	}

	if len(envs) > 0 {
		if err := s.relay.AckEnvelopes(ctx, userID, len(envs)); err != nil {
			return out, fmt.Errorf("ack %d envelopes: %w", len(envs), err)
		}
	}
	return out, nil
}

// Follow drains the mailbox, then switches to the relay's push stream and
// invokes fn for every message until ctx is cancelled. All crypto stays
// synchronous; only the transport is event-driven.
func (s *Service) Follow(ctx context.Context, passphrase, userID string, fn func(domain.Inbound)) error {
	backlog, err := s.Receive(ctx, passphrase, userID, 0)
	if err != nil {
		return err
	}
	for _, in := range backlog {
		fn(in)
	}

	ch, err := s.relay.Watch(ctx, userID)
	if err != nil {
		return err
	}
	// Envelopes that arrived between the drain and the socket opening sit in
	// the mailbox, not the stream; collect them before blocking.
	gap, err := s.Receive(ctx, passphrase, userID, 0)
	if err != nil {
		return err
	}
	for _, in := range gap {
		fn(in)
	}
	for env := range ch {
		fn(s.process(passphrase, userID, env))
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("watch stream closed")
}

// process turns one envelope into an Inbound slot.
func (s *Service) process(passphrase, userID string, env domain.Envelope) domain.Inbound {
	if env.Kind == domain.KindGroup {
		in := domain.Inbound{From: env.From, GroupID: env.GroupID, Timestamp: env.Timestamp}
		if s.group == nil {
			in.Err = domain.ErrGroupKeyMissing
		} else {
			in.Plaintext, in.Err = s.group.OpenGroupEnvelope(env)
		}
		return in
	}
	return s.openDirect(passphrase, userID, env)
}

// openDirect decrypts one direct envelope, bootstrapping the session from the
// handshake header on first contact.
func (s *Service) openDirect(passphrase, userID string, env domain.Envelope) domain.Inbound {
	in := domain.Inbound{From: env.From, Timestamp: env.Timestamp}
	if env.Header == nil {
		in.Err = fmt.Errorf("%w: missing ratchet header", domain.ErrDecryptionFailure)
		return in
	}

	st, found, err := s.sessions.LoadSession(userID, env.From)
	if err != nil {
		in.Err = err
		return in
	}
	if !found {
		if env.X3DH == nil {
			in.Err = domain.ErrSessionNotInitialized
			return in
		}
		fresh, err := s.bootstrap(passphrase, *env.X3DH)
		if err != nil {
			in.Err = err
			return in
		}
		st = fresh
	}

	plaintext, err := ratchet.Decrypt(&st, *env.Header, env.Ciphertext, env.Nonce)
	if err != nil {
		in.Err = err
		return in
	}

	// Any successful decrypt proves the peer holds the session; the
	// handshake header need not ride along anymore.
	st.PendingHandshake = nil
	if err := s.sessions.SaveSession(userID, env.From, st); err != nil {
		in.Err = err
		return in
	}

	var p domain.Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		in.Err = fmt.Errorf("malformed payload from %q: %w", env.From, err)
		return in
	}
	switch p.Type {
	case domain.PayloadSenderKeyDistribution:
		if s.group == nil {
			in.Err = domain.ErrGroupKeyMissing
			return in
		}
		if err := s.group.IngestDistribution(p); err != nil {
			in.Err = err
			return in
		}
		in.GroupID = p.GroupID
	default:
		in.Plaintext = []byte(p.Text)
	}
	return in
}

// bootstrap recomputes the initiator's secret from our private bundle and
// seeds the responder side of the ratchet.
func (s *Service) bootstrap(passphrase string, hdr domain.X3DHHeader) (domain.RatchetState, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.RatchetState{}, err
	}
	bundle, ok, err := s.prekeys.LoadPreKeyBundle(passphrase)
	if err != nil {
		return domain.RatchetState{}, err
	}
	if !ok {
		return domain.RatchetState{}, fmt.Errorf("no prekey bundle; run register first")
	}
	secret, err := x3dh.Responder(id, bundle.SignedPreKey, bundle.KEMPreKey, hdr)
	if err != nil {
		return domain.RatchetState{}, err
	}
	return ratchet.InitReceiver(secret, bundle.SignedPreKey), nil
}

// Compile-time assertions.
var (
	_ domain.MessageService = (*Service)(nil)
	_ domain.PayloadSender  = (*Service)(nil)
)
