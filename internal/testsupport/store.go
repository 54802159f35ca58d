package testsupport

import (
	"context"
	"testing"

	"audiorating/internal/config"
	"audiorating/internal/store"
	"audiorating/internal/studies"
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

// MustSyncStudies parses content as YAML studies and creates them in st.
func MustSyncStudies(t testing.TB, st *store.Store, content string) *studies.Config {
	t.Helper()

	cfg, err := studies.Parse([]byte(content), "yaml")
	if err != nil {
		t.Fatalf("studies.Parse: %v", err)
	}
	if _, err := st.SyncStudies(context.Background(), cfg); err != nil {
		t.Fatalf("SyncStudies: %v", err)
	}
	return cfg
}
