package testsupport

import (
	"context"
	"testing"

	"plinth/internal/config"
	"plinth/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// RegisterFile registers a model file for tests using the provided store.
func RegisterFile(t testing.TB, st *store.Store, path string) int64 {
	t.Helper()

	id, err := st.RegisterFile(context.Background(), path)
	if err != nil {
		t.Fatalf("store.RegisterFile: %v", err)
	}
	return id
}
