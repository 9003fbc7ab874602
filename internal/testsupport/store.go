package testsupport

import (
	"context"
	"testing"
	"time"

	"vidpress/internal/config"
	"vidpress/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running run created at the given time.
func BeginRun(t testing.TB, store *history.Store, id string, created time.Time) {
	t.Helper()

	err := store.Begin(context.Background(), history.Run{
		ID:        id,
		Strategy:  config.StrategyHybrid,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
}
