package prekey

import (
	"context"

	"parley/internal/domain"
	"parley/internal/protocol/x3dh"
)

// Service manages prekey material and its publication.
type Service struct {
	ids   domain.IdentityStore
	ps    domain.PreKeyStore
	relay domain.RelayClient
}

func New(ids domain.IdentityStore, ps domain.PreKeyStore, relay domain.RelayClient) *Service {
	return &Service{ids: ids, ps: ps, relay: relay}
}

// GenerateAndRegister creates a fresh signed prekey and KEM prekey, persists
// the private halves, and registers the public bundle with the relay. Running
// it again rotates the bundle; existing sessions are unaffected.
func (s *Service) GenerateAndRegister(ctx context.Context, passphrase, userID string) (domain.PreKeyBundlePublic, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyBundlePublic{}, err
	}
	bundle, err := x3dh.GenerateBundle(id)
	if err != nil {
		return domain.PreKeyBundlePublic{}, err
	}
	if err := s.ps.SavePreKeyBundle(passphrase, bundle); err != nil {
		return domain.PreKeyBundlePublic{}, err
	}
	pub := x3dh.PublicBundle(userID, id, bundle)
	if err := s.relay.RegisterBundle(ctx, pub); err != nil {
		return domain.PreKeyBundlePublic{}, err
	}
	return pub, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
