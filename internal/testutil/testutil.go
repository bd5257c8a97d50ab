// Package testutil provides shared test helpers for setting up vaults.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/nbirkeland/eihwaz/internal/search"
	"github.com/nbirkeland/eihwaz/internal/storage"
	"github.com/nbirkeland/eihwaz/internal/vault"
)

// TestStore creates a temporary vault directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestVault creates an initialized vault over a temporary directory.
func TestVault(t *testing.T) (string, *vault.Vault) {
	t.Helper()
	dir, _, v := TestVaultWithStore(t)
	return dir, v
}

// TestVaultWithStore is TestVault for callers that also need the
// underlying store.
func TestVaultWithStore(t *testing.T) (string, storage.Provider, *vault.Vault) {
	t.Helper()
	dir, store := TestStore(t)
	engine, err := search.New()
	if err != nil {
		t.Fatal(err)
	}
	v := vault.New(store, engine, slog.New(slog.DiscardHandler))
	if err := v.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return dir, store, v
}
