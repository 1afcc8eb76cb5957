package session

import (
	"context"

	"golang.org/x/sync/singleflight"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/protocol/ratchet"
	"parley/internal/protocol/x3dh"
)

// Service performs X3DH initiation and persists the resulting ratchet state.
//
// Steps on Initiate:
//   - Load our identity keys.
//   - Fetch the peer's prekey bundle from the relay and verify its signature.
//   - Run the key agreement as initiator.
//   - Seed the ratchet against the peer's signed prekey and persist it, with
//     the handshake header attached for first-message delivery.
type Service struct {
	ids      domain.IdentityStore
	sessions domain.SessionStore
	relay    domain.RelayClient

	// inflight collapses concurrent initiations for the same (user, peer) so
	// only one agreement runs and only one session is written.
	inflight singleflight.Group
}

// New constructs a session service with the given stores and relay client.
func New(ids domain.IdentityStore, sessions domain.SessionStore, relay domain.RelayClient) *Service {
	return &Service{ids: ids, sessions: sessions, relay: relay}
}

// Initiate returns the existing session with peerID, or establishes one. The
// crypto itself is synchronous; only bundle fetching touches the network.
func (s *Service) Initiate(ctx context.Context, passphrase, userID, peerID string) (domain.RatchetState, error) {
	v, err, _ := s.inflight.Do(userID+"/"+peerID, func() (any, error) {
		st, ok, err := s.sessions.LoadSession(userID, peerID)
		if err != nil {
			return nil, err
		}
		if ok {
			return st, nil
		}
		fresh, err := s.establish(ctx, passphrase, userID, peerID)
		if err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return domain.RatchetState{}, err
	}
	return v.(domain.RatchetState), nil
}

func (s *Service) establish(ctx context.Context, passphrase, userID, peerID string) (domain.RatchetState, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.RatchetState{}, err
	}
	bundle, err := s.relay.FetchBundle(ctx, peerID)
	if err != nil {
		return domain.RatchetState{}, err
	}

	secret, hdr, err := x3dh.Initiator(id, bundle)
	if err != nil {
		return domain.RatchetState{}, err
	}
	peerSPK, err := crypto.B64Key(bundle.SignedPreKey)
	if err != nil {
		return domain.RatchetState{}, err
	}
	st, err := ratchet.InitSender(secret, domain.X25519Public(peerSPK))
	if err != nil {
		return domain.RatchetState{}, err
	}

	// The peer learns of this session from our first message, so the
	// handshake header rides along until they reply.
	st.PendingHandshake = &hdr

	if err := s.sessions.SaveSession(userID, peerID, st); err != nil {
		return domain.RatchetState{}, err
	}
	return st, nil
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
