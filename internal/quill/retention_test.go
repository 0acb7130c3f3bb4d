package quill_test

import (
	"fmt"
	"testing"
	"time"

	"quill-go/internal/quill"
	"quill-go/internal/store"
	"quill-go/internal/testutil"
)

func TestService_Prune(t *testing.T) {
	t.Run("evicts beyond the keep count and rescues the active snapshot", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		clock := testutil.FixedClock()
		idgen := testutil.NewStubIDGenerator()
		storesRoot := t.TempDir()
		stores := store.NewLinearStoreManager(storesRoot, db, clock, idgen)

		// Build eight snapshots under a generous keep count.
		builder := quill.NewService(db, stores, quill.NewNopLogger(), clock, idgen, 100)
		leaf, _ := builder.CreateNode(nil, "chapter", "Ch1", "")
		content, err := builder.CreateContent(&leaf.ID, nil, "Scene", "", "snap 1")
		if err != nil {
			t.Fatalf("CreateContent() error = %v", err)
		}
		versionID := *content.ActiveVersionID

		for i := 2; i <= 8; i++ {
			clock.Advance(time.Minute)
			if _, err := builder.CreateSnapshot(versionID, fmt.Sprintf("snap %d", i)); err != nil {
				t.Fatalf("CreateSnapshot() error = %v", err)
			}
		}

		// Activate the sixth-newest snapshot, which eviction at keep
		// count five would otherwise delete.
		snaps, _ := builder.ListSnapshots(versionID)
		if len(snaps) != 8 {
			t.Fatalf("snapshot count = %d, want 8", len(snaps))
		}
		sixthNewest := snaps[5]
		if err := builder.SwitchSnapshot(sixthNewest.ID); err != nil {
			t.Fatalf("SwitchSnapshot() error = %v", err)
		}

		svc := quill.NewService(db, stores, quill.NewNopLogger(), clock, idgen, 5)
		evicted, err := svc.Prune()
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if evicted != 3 {
			t.Errorf("Prune() evicted = %d, want 3", evicted)
		}

		remaining, _ := svc.ListSnapshots(versionID)
		if len(remaining) != 5 {
			t.Fatalf("remaining snapshots = %d, want 5", len(remaining))
		}
		if remaining[0].Body != "snap 8" || remaining[4].Body != "snap 4" {
			t.Errorf("retained range = %q..%q, want snap 8..snap 4",
				remaining[0].Body, remaining[4].Body)
		}

		// The active pointer moved to the newest retained snapshot.
		reloaded, _ := db.GetContent(content.ID)
		if *reloaded.ActiveSnapshotID != remaining[0].ID {
			t.Errorf("active snapshot = %s, want %s", *reloaded.ActiveSnapshotID, remaining[0].ID)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		clock := testutil.FixedClock()
		idgen := testutil.NewStubIDGenerator()
		stores := store.NewLinearStoreManager(t.TempDir(), db, clock, idgen)
		svc := quill.NewService(db, stores, quill.NewNopLogger(), clock, idgen, 2)

		leaf, _ := svc.CreateNode(nil, "chapter", "Ch1", "")
		content, _ := svc.CreateContent(&leaf.ID, nil, "Scene", "", "v1")
		versionID := *content.ActiveVersionID
		for i := 0; i < 4; i++ {
			clock.Advance(time.Minute)
			svc.CreateSnapshot(versionID, "v")
		}

		if evicted, err := svc.Prune(); err != nil || evicted != 0 {
			t.Fatalf("first Prune() = (%d, %v), want (0, nil)", evicted, err)
		}
		if evicted, err := svc.Prune(); err != nil || evicted != 0 {
			t.Fatalf("second Prune() = (%d, %v), want (0, nil)", evicted, err)
		}
	})

	t.Run("rejected under the branching strategy", func(t *testing.T) {
		svc, _, _ := newBranchingService(t)
		if _, err := svc.Prune(); err == nil {
			t.Error("Prune() expected error under branching strategy")
		}
	})
}
