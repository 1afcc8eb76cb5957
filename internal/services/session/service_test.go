package session_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"parley/internal/domain"
	"parley/internal/relay"
	"parley/internal/relayserver"
	identitysvc "parley/internal/services/identity"
	prekeysvc "parley/internal/services/prekey"
	sessionsvc "parley/internal/services/session"
	"parley/internal/store"
)

const passphrase = "Correct-Horse-Battery-9!"

// setup publishes bob's bundle and returns alice's session service plus her
// session store.
func setup(t *testing.T) (*sessionsvc.Service, *store.SessionFileStore) {
	t.Helper()
	srv := relayserver.New(relayserver.NewMemoryMailbox(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	rc := relay.New(ts.URL, ts.Client(), nil)

	bobStore := store.NewFileStore(t.TempDir())
	if _, _, err := identitysvc.New(bobStore).Generate(passphrase); err != nil {
		t.Fatalf("Generate identity: %v", err)
	}
	if _, err := prekeysvc.New(bobStore, bobStore, rc).GenerateAndRegister(context.Background(), passphrase, "bob"); err != nil {
		t.Fatalf("GenerateAndRegister: %v", err)
	}

	aliceDir := t.TempDir()
	aliceStore := store.NewFileStore(aliceDir)
	if _, _, err := identitysvc.New(aliceStore).Generate(passphrase); err != nil {
		t.Fatalf("Generate identity: %v", err)
	}
	sessions := store.NewSessionFileStore(aliceDir)
	return sessionsvc.New(aliceStore, sessions, rc), sessions
}

func TestInitiate_ConcurrentCallsConverge(t *testing.T) {
	svc, sessions := setup(t)
	ctx := context.Background()

	// Interleaved fetch-bundle-then-init calls for the same peer must all
	// land on one session, not race divergent ones.
	const n = 8
	states := make([]domain.RatchetState, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i], errs[i] = svc.Initiate(ctx, passphrase, "alice", "bob")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Initiate %d: %v", i, errs[i])
		}
		if !bytes.Equal(states[i].RootKey, states[0].RootKey) {
			t.Fatalf("Initiate %d derived a different root key", i)
		}
	}

	stored, ok, err := sessions.LoadSession("alice", "bob")
	if err != nil || !ok {
		t.Fatalf("LoadSession: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(stored.RootKey, states[0].RootKey) {
		t.Fatal("stored session does not match the returned states")
	}
}

func TestInitiate_ReturnsExistingSession(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Initiate(ctx, passphrase, "alice", "bob")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	again, err := svc.Initiate(ctx, passphrase, "alice", "bob")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if !bytes.Equal(again.RootKey, first.RootKey) {
		t.Fatal("second Initiate replaced the session")
	}
	if again.PendingHandshake == nil {
		t.Fatal("handshake header missing from established session")
	}
}
