package keyring

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPassphraseLifecycle(t *testing.T) {
	keyring.MockInit()

	if HasPassphrase("vault-1") {
		t.Fatal("expected no passphrase before save")
	}
	if _, err := GetPassphrase("vault-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := SavePassphrase("vault-1", []byte("correct-horse")); err != nil {
		t.Fatalf("SavePassphrase failed: %v", err)
	}
	if !HasPassphrase("vault-1") {
		t.Fatal("expected passphrase after save")
	}
	if HasPassphrase("vault-2") {
		t.Fatal("entries must be per vault")
	}

	got, err := GetPassphrase("vault-1")
	if err != nil {
		t.Fatalf("GetPassphrase failed: %v", err)
	}
	if string(got) != "correct-horse" {
		t.Errorf("got %q", got)
	}

	if err := DeletePassphrase("vault-1"); err != nil {
		t.Fatalf("DeletePassphrase failed: %v", err)
	}
	if HasPassphrase("vault-1") {
		t.Fatal("expected passphrase to be gone")
	}
	if err := DeletePassphrase("vault-1"); err != nil {
		t.Errorf("deleting a missing entry should not fail: %v", err)
	}
}
