package testsupport

import (
	"context"
	"testing"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode claims a new episode for tests using the provided store.
func NewEpisode(t testing.TB, store *ledger.Store, identity, url, title string) *ledger.Episode {
	t.Helper()

	episode, err := store.NewEpisode(context.Background(), identity, "rec_"+identity, url, title)
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return episode
}
