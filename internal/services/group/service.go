package group

import (
	"context"
	"fmt"
	"time"

	"parley/internal/domain"
	"parley/internal/protocol/senderkey"
)

// Service manages sender-key chains per (group, sender).
//
// Group encryption is one chain per sender: each member holds its own sending
// chain and a receiving copy of every other member's. Chains travel to members
// as distribution payloads inside ordinary pairwise messages, so the relay
// never sees them.
type Service struct {
	groups domain.GroupStore
	relay  domain.RelayClient
	sender domain.PayloadSender
}

// New constructs a group service. sender is the pairwise channel used for
// key distribution.
func New(groups domain.GroupStore, relay domain.RelayClient, sender domain.PayloadSender) *Service {
	return &Service{groups: groups, relay: relay, sender: sender}
}

// Create generates our sending chain for groupID and distributes it to every
// member over pairwise sessions. Members that cannot be reached make the whole
// call fail; re-running Create re-distributes the same chain.
func (s *Service) Create(ctx context.Context, passphrase, userID, groupID string, members []string) error {
	st, ok, err := s.groups.LoadGroupSession(groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		st, err = senderkey.Generate()
		if err != nil {
			return err
		}
		if err := s.groups.SaveGroupSession(groupID, userID, st); err != nil {
			return err
		}
	}

	blob, err := st.MarshalBinary()
	if err != nil {
		return err
	}
	for _, member := range members {
		if member == userID {
			continue
		}
		p := domain.Payload{
			Type:     domain.PayloadSenderKeyDistribution,
			GroupID:  groupID,
			SenderID: userID,
			Key:      blob,
		}
		if err := s.sender.SendPayload(ctx, passphrase, userID, member, p); err != nil {
			return fmt.Errorf("distribute to %q: %w", member, err)
		}
	}
	return nil
}

// Send encrypts text once under our group chain and fans the envelope out to
// every member.
func (s *Service) Send(ctx context.Context, userID, groupID string, members []string, text string) error {
	st, ok, err := s.groups.LoadGroupSession(groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no sending chain for group %q", domain.ErrGroupKeyMissing, groupID)
	}

	ct, nonce, step, err := senderkey.Encrypt(&st, []byte(text))
	if err != nil {
		return err
	}
	// The chain moved; persist before anything leaves the device.
	if err := s.groups.SaveGroupSession(groupID, userID, st); err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, member := range members {
		if member == userID {
			continue
		}
		env := domain.Envelope{
			Kind:       domain.KindGroup,
			From:       userID,
			To:         member,
			GroupID:    groupID,
			Step:       step,
			Ciphertext: ct,
			Nonce:      nonce,
			Timestamp:  now,
		}
		if err := s.relay.SendEnvelope(ctx, env); err != nil {
			return fmt.Errorf("send to %q: %w", member, err)
		}
	}
	return nil
}

// IngestDistribution stores a member's chain received over a pairwise session.
func (s *Service) IngestDistribution(p domain.Payload) error {
	if p.GroupID == "" || p.SenderID == "" || len(p.Key) == 0 {
		return fmt.Errorf("malformed sender key distribution")
	}
	var st domain.SenderKeyState
	if err := st.UnmarshalBinary(p.Key); err != nil {
		return fmt.Errorf("sender key for %s/%s: %w", p.GroupID, p.SenderID, err)
	}
	return s.groups.SaveGroupSession(p.GroupID, p.SenderID, st)
}

// OpenGroupEnvelope decrypts one inbound group envelope with the sender's
// chain, persisting the advanced state on success.
func (s *Service) OpenGroupEnvelope(env domain.Envelope) ([]byte, error) {
	st, ok, err := s.groups.LoadGroupSession(env.GroupID, env.From)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no chain for %s/%s", domain.ErrGroupKeyMissing, env.GroupID, env.From)
	}
	pt, err := senderkey.Decrypt(&st, env.Ciphertext, env.Nonce, env.Step)
	if err != nil {
		return nil, err
	}
	if err := s.groups.SaveGroupSession(env.GroupID, env.From, st); err != nil {
		return nil, err
	}
	return pt, nil
}

// Compile-time assertions.
var (
	_ domain.GroupService = (*Service)(nil)
	_ domain.GroupHandler = (*Service)(nil)
)
