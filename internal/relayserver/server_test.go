package relayserver_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"parley/internal/domain"
	"parley/internal/relay"
	"parley/internal/relayserver"
)

func newRelay(t *testing.T) (*httptest.Server, *relay.Client) {
	t.Helper()
	srv := relayserver.New(relayserver.NewMemoryMailbox(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, relay.New(ts.URL, ts.Client(), nil)
}

func TestBundleDirectory(t *testing.T) {
	_, client := newRelay(t)
	ctx := context.Background()

	bundle := domain.PreKeyBundlePublic{
		UserID:       "alice",
		IdentityKey:  "aWRlbnRpdHk",
		SignedPreKey: "c2lnbmVk",
	}
	if err := client.RegisterBundle(ctx, bundle); err != nil {
		t.Fatalf("RegisterBundle: %v", err)
	}
	got, err := client.FetchBundle(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if got != bundle {
		t.Fatalf("got %+v, want %+v", got, bundle)
	}
	if _, err := client.FetchBundle(ctx, "nobody"); err == nil {
		t.Fatal("want error for unknown user")
	}
}

func TestMailboxQueueAndAck(t *testing.T) {
	_, client := newRelay(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env := domain.Envelope{
			Kind:       domain.KindDirect,
			From:       "alice",
			To:         "bob",
			Ciphertext: []byte{byte(i)},
			Timestamp:  time.Now().Unix(),
		}
		if err := client.SendEnvelope(ctx, env); err != nil {
			t.Fatalf("SendEnvelope: %v", err)
		}
	}

	envs, err := client.FetchEnvelopes(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("FetchEnvelopes: %v", err)
	}
	if len(envs) != 2 || envs[0].Ciphertext[0] != 0 || envs[1].Ciphertext[0] != 1 {
		t.Fatalf("got %d envelopes, want the first two in order", len(envs))
	}

	// Ack removes only what was consumed; the third remains.
	if err := client.AckEnvelopes(ctx, "bob", 2); err != nil {
		t.Fatalf("AckEnvelopes: %v", err)
	}
	envs, err = client.FetchEnvelopes(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("FetchEnvelopes: %v", err)
	}
	if len(envs) != 1 || envs[0].Ciphertext[0] != 2 {
		t.Fatalf("got %d envelopes after ack", len(envs))
	}
}

func TestWatchReceivesLiveEnvelopes(t *testing.T) {
	_, client := newRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := client.Watch(ctx, "bob")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	env := domain.Envelope{Kind: domain.KindDirect, From: "alice", To: "bob", Ciphertext: []byte("hi")}
	if err := client.SendEnvelope(ctx, env); err != nil {
		t.Fatalf("SendEnvelope: %v", err)
	}

	select {
	case got := <-ch:
		if got.From != "alice" || string(got.Ciphertext) != "hi" {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pushed envelope")
	}

	// With a watcher connected nothing should queue.
	envs, err := client.FetchEnvelopes(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("FetchEnvelopes: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("mailbox has %d envelopes, want 0", len(envs))
	}
}

func TestMemoryMailboxLimits(t *testing.T) {
	mb := relayserver.NewMemoryMailbox()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := mb.Push(ctx, "u", domain.Envelope{Ciphertext: []byte{byte(i)}}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	envs, err := mb.List(ctx, "u", 10)
	if err != nil || len(envs) != 5 {
		t.Fatalf("List: n=%d err=%v", len(envs), err)
	}
	if err := mb.Ack(ctx, "u", 100); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	envs, _ = mb.List(ctx, "u", 0)
	if len(envs) != 0 {
		t.Fatalf("over-ack left %d envelopes", len(envs))
	}
}
