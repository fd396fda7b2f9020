package testsupport

import (
	"testing"

	"recsort/internal/config"
	"recsort/internal/journal"
)

// MustOpenJournal opens the journal configured on cfg and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
