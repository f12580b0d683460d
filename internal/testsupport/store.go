package testsupport

import (
	"testing"

	"pwaforge/internal/config"
	"pwaforge/internal/entity"
)

// MustOpenStore opens an entity.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *entity.Store {
	t.Helper()

	store, err := entity.Open(cfg)
	if err != nil {
		t.Fatalf("entity.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
