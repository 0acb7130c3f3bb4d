package store_test

import (
	"testing"

	"quill-go/internal/config"
	"quill-go/internal/quill"
	"quill-go/internal/store"
	"quill-go/internal/testutil"
)

func TestNewStoreManagerFromConfig(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	clock := testutil.FixedClock()
	idgen := &testutil.StubIDGenerator{}

	t.Run("branching strategy", func(t *testing.T) {
		cfg := config.StoreConfig{Strategy: "branching", Root: t.TempDir()}
		got, err := store.NewStoreManagerFromConfig(cfg, db, clock, idgen)

		if err != nil {
			t.Fatalf("NewStoreManagerFromConfig() error = %v", err)
		}
		if got.Strategy() != quill.StrategyBranching {
			t.Errorf("Strategy() = %q, want %q", got.Strategy(), quill.StrategyBranching)
		}
	})

	t.Run("linear strategy", func(t *testing.T) {
		cfg := config.StoreConfig{Strategy: "linear", Root: t.TempDir()}
		got, err := store.NewStoreManagerFromConfig(cfg, db, clock, idgen)

		if err != nil {
			t.Fatalf("NewStoreManagerFromConfig() error = %v", err)
		}
		if got.Strategy() != quill.StrategyLinear {
			t.Errorf("Strategy() = %q, want %q", got.Strategy(), quill.StrategyLinear)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		cfg := config.StoreConfig{Strategy: "svn", Root: t.TempDir()}
		got, err := store.NewStoreManagerFromConfig(cfg, db, clock, idgen)

		if err == nil {
			t.Error("NewStoreManagerFromConfig() expected error for unknown strategy, got nil")
		}
		if got != nil {
			t.Error("NewStoreManagerFromConfig() should return nil on error")
		}
	})
}
