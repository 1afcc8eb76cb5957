package identity_test

import (
	"errors"
	"testing"

	"parley/internal/services/identity"
	"parley/internal/store"
)

func TestGenerate_RejectsWeakPassphrases(t *testing.T) {
	svc := identity.New(store.NewFileStore(t.TempDir()))
	for _, weak := range []string{
		"",
		"short1!A",
		"alllowercase1!",
		"ALLUPPERCASE1!",
		"NoDigitsHere!!",
		"NoSymbolsHere1",
	} {
		if _, _, err := svc.Generate(weak); !errors.Is(err, identity.ErrWeakPassphrase) {
			t.Fatalf("passphrase %q: got %v, want ErrWeakPassphrase", weak, err)
		}
	}
}

func TestSafetyNumber_MatchesAcrossParties(t *testing.T) {
	const pass = "Correct-Horse-Battery-9!"
	a := identity.New(store.NewFileStore(t.TempDir()))
	b := identity.New(store.NewFileStore(t.TempDir()))

	idA, fpA, err := a.Generate(pass)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	idB, _, err := b.Generate(pass)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	fp, err := a.Fingerprint(pass)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp != fpA {
		t.Fatalf("fingerprint changed across load: %q vs %q", fp, fpA)
	}

	snA, err := a.SafetyNumber(pass, idB.XPub)
	if err != nil {
		t.Fatalf("SafetyNumber: %v", err)
	}
	snB, err := b.SafetyNumber(pass, idA.XPub)
	if err != nil {
		t.Fatalf("SafetyNumber: %v", err)
	}
	if snA != snB {
		t.Fatalf("safety numbers differ:\n%s\n%s", snA, snB)
	}
}
