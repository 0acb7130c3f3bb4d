package database_test

import (
	"database/sql"
	"testing"
	"time"

	"quill-go/internal/database"
	"quill-go/internal/model"
)

var testTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestDB opens an in-memory database with the schema applied and
// also returns the raw connection for fixture setup.
func newTestDB(t *testing.T) (*database.SQLiteDatabase, *sql.DB) {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("OpenConnection() error = %v", err)
	}
	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("applying schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)
	t.Cleanup(func() { db.Close() })
	return db, sqlDB
}

func mkNode(t *testing.T, db *database.SQLiteDatabase, id string, parentID *string, order int64) *model.Node {
	t.Helper()
	n := &model.Node{
		ID:        id,
		ParentID:  parentID,
		Kind:      "folder",
		Title:     id,
		SortOrder: order,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	if err := db.CreateNode(n); err != nil {
		t.Fatalf("CreateNode(%s) error = %v", id, err)
	}
	return n
}

func mkContent(t *testing.T, db *database.SQLiteDatabase, id string, nodeID *string) *model.Content {
	t.Helper()
	c := &model.Content{
		ID:        id,
		NodeID:    nodeID,
		Title:     id,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	if err := db.CreateContent(c); err != nil {
		t.Fatalf("CreateContent(%s) error = %v", id, err)
	}
	return c
}

func TestSQLiteDatabase_Nodes(t *testing.T) {
	t.Run("round-trips a node", func(t *testing.T) {
		db, _ := newTestDB(t)

		mkNode(t, db, "n1", nil, 0)
		got, err := db.GetNode("n1")
		if err != nil {
			t.Fatalf("GetNode() error = %v", err)
		}
		if got == nil || got.Title != "n1" || got.ParentID != nil {
			t.Errorf("GetNode() = %+v", got)
		}
	})

	t.Run("missing node is nil, not an error", func(t *testing.T) {
		db, _ := newTestDB(t)
		got, err := db.GetNode("nope")
		if err != nil {
			t.Fatalf("GetNode() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetNode() = %+v, want nil", got)
		}
	})

	t.Run("lists children in sort order", func(t *testing.T) {
		db, _ := newTestDB(t)

		root := mkNode(t, db, "root", nil, 0)
		mkNode(t, db, "b", &root.ID, 1)
		mkNode(t, db, "a", &root.ID, 0)

		children, err := db.ListChildren(&root.ID)
		if err != nil {
			t.Fatalf("ListChildren() error = %v", err)
		}
		if len(children) != 2 || children[0].ID != "a" || children[1].ID != "b" {
			t.Errorf("ListChildren() order = %+v", children)
		}

		roots, _ := db.ListChildren(nil)
		if len(roots) != 1 || roots[0].ID != "root" {
			t.Errorf("ListChildren(nil) = %+v", roots)
		}
	})

	t.Run("next sibling order appends", func(t *testing.T) {
		db, _ := newTestDB(t)

		root := mkNode(t, db, "root", nil, 0)
		if order, _ := db.NextSiblingOrder(&root.ID); order != 0 {
			t.Errorf("NextSiblingOrder(empty) = %d, want 0", order)
		}
		mkNode(t, db, "a", &root.ID, 0)
		if order, _ := db.NextSiblingOrder(&root.ID); order != 1 {
			t.Errorf("NextSiblingOrder() = %d, want 1", order)
		}
	})
}

func TestSQLiteDatabase_ReorderChildren(t *testing.T) {
	setup := func(t *testing.T) *database.SQLiteDatabase {
		t.Helper()
		db, _ := newTestDB(t)
		root := mkNode(t, db, "root", nil, 0)
		mkNode(t, db, "a", &root.ID, 0)
		mkNode(t, db, "b", &root.ID, 1)
		mkNode(t, db, "c", &root.ID, 2)
		return db
	}

	t.Run("rewrites the order atomically", func(t *testing.T) {
		db := setup(t)

		if err := db.ReorderChildren("root", []string{"c", "a", "b"}); err != nil {
			t.Fatalf("ReorderChildren() error = %v", err)
		}
		rootID := "root"
		children, _ := db.ListChildren(&rootID)
		if children[0].ID != "c" || children[1].ID != "a" || children[2].ID != "b" {
			t.Errorf("order = %s,%s,%s", children[0].ID, children[1].ID, children[2].ID)
		}
	})

	t.Run("rejects a missing child", func(t *testing.T) {
		db := setup(t)
		if err := db.ReorderChildren("root", []string{"a", "b"}); err == nil {
			t.Error("ReorderChildren() expected error for missing child")
		}
	})

	t.Run("rejects a duplicate id", func(t *testing.T) {
		db := setup(t)
		if err := db.ReorderChildren("root", []string{"a", "a", "b"}); err == nil {
			t.Error("ReorderChildren() expected error for duplicate id")
		}
	})

	t.Run("rejects an id from another parent", func(t *testing.T) {
		db := setup(t)
		mkNode(t, db, "other", nil, 1)
		if err := db.ReorderChildren("root", []string{"a", "b", "other"}); err == nil {
			t.Error("ReorderChildren() expected error for foreign id")
		}
	})
}

func TestSQLiteDatabase_ReorderContents(t *testing.T) {
	setup := func(t *testing.T) *database.SQLiteDatabase {
		t.Helper()
		db, _ := newTestDB(t)
		leaf := mkNode(t, db, "leaf", nil, 0)
		mkContent(t, db, "c1", &leaf.ID)
		mkContent(t, db, "c2", &leaf.ID)
		mkContent(t, db, "c3", &leaf.ID)
		return db
	}
	leafID := "leaf"

	t.Run("rewrites the order atomically", func(t *testing.T) {
		db := setup(t)

		if err := db.ReorderContents(&leafID, nil, []string{"c3", "c1", "c2"}); err != nil {
			t.Fatalf("ReorderContents() error = %v", err)
		}
		contents, _ := db.ListContentsByNode(leafID)
		if contents[0].ID != "c3" || contents[1].ID != "c1" || contents[2].ID != "c2" {
			t.Errorf("order = %s,%s,%s", contents[0].ID, contents[1].ID, contents[2].ID)
		}
	})

	t.Run("reorders a scope's standalone contents", func(t *testing.T) {
		db, _ := newTestDB(t)
		scope := "project-1"
		for _, id := range []string{"p1", "p2"} {
			c := &model.Content{ID: id, ScopeID: &scope, Title: id, CreatedAt: testTime, UpdatedAt: testTime}
			if err := db.CreateContent(c); err != nil {
				t.Fatalf("CreateContent(%s) error = %v", id, err)
			}
		}

		if err := db.ReorderContents(nil, &scope, []string{"p2", "p1"}); err != nil {
			t.Fatalf("ReorderContents() error = %v", err)
		}
		contents, _ := db.ListStandaloneContents(scope)
		if contents[0].ID != "p2" || contents[1].ID != "p1" {
			t.Errorf("order = %s,%s", contents[0].ID, contents[1].ID)
		}
	})

	t.Run("rejects an incomplete id set", func(t *testing.T) {
		db := setup(t)
		if err := db.ReorderContents(&leafID, nil, []string{"c1", "c2"}); err == nil {
			t.Error("ReorderContents() expected error for missing content")
		}
	})

	t.Run("rejects a foreign id and leaves the order unchanged", func(t *testing.T) {
		db := setup(t)
		other := mkNode(t, db, "other", nil, 1)
		mkContent(t, db, "elsewhere", &other.ID)

		if err := db.ReorderContents(&leafID, nil, []string{"c1", "c2", "elsewhere"}); err == nil {
			t.Error("ReorderContents() expected error for foreign id")
		}
		contents, _ := db.ListContentsByNode(leafID)
		if contents[0].ID != "c1" || contents[1].ID != "c2" || contents[2].ID != "c3" {
			t.Errorf("order changed after rejected reorder: %s,%s,%s",
				contents[0].ID, contents[1].ID, contents[2].ID)
		}
	})
}

func TestSQLiteDatabase_GetSubtree(t *testing.T) {
	db, _ := newTestDB(t)

	root := mkNode(t, db, "root", nil, 0)
	a := mkNode(t, db, "a", &root.ID, 0)
	mkNode(t, db, "b", &root.ID, 1)
	mkNode(t, db, "aa", &a.ID, 0)

	t.Run("returns depth-annotated rows in one query", func(t *testing.T) {
		nodes, err := db.GetSubtree("root", -1)
		if err != nil {
			t.Fatalf("GetSubtree() error = %v", err)
		}
		wantIDs := []string{"root", "a", "b", "aa"}
		for i, want := range wantIDs {
			if nodes[i].ID != want {
				t.Errorf("node %d = %s, want %s", i, nodes[i].ID, want)
			}
		}
		if nodes[3].Depth != 2 {
			t.Errorf("aa depth = %d, want 2", nodes[3].Depth)
		}
	})

	t.Run("bounds the walk", func(t *testing.T) {
		nodes, err := db.GetSubtree("root", 1)
		if err != nil {
			t.Fatalf("GetSubtree() error = %v", err)
		}
		if len(nodes) != 3 {
			t.Errorf("GetSubtree(maxDepth=1) len = %d, want 3", len(nodes))
		}
	})

	t.Run("starts anywhere in the tree", func(t *testing.T) {
		nodes, err := db.GetSubtree("a", -1)
		if err != nil {
			t.Fatalf("GetSubtree() error = %v", err)
		}
		if len(nodes) != 2 || nodes[0].ID != "a" || nodes[0].Depth != 0 {
			t.Errorf("GetSubtree(a) = %+v", nodes)
		}
	})
}

func TestSQLiteDatabase_NodeDepth(t *testing.T) {
	db, _ := newTestDB(t)

	root := mkNode(t, db, "root", nil, 0)
	a := mkNode(t, db, "a", &root.ID, 0)
	mkNode(t, db, "aa", &a.ID, 0)

	cases := map[string]int{"root": 1, "a": 2, "aa": 3}
	for id, want := range cases {
		got, err := db.NodeDepth(id)
		if err != nil {
			t.Fatalf("NodeDepth(%s) error = %v", id, err)
		}
		if got != want {
			t.Errorf("NodeDepth(%s) = %d, want %d", id, got, want)
		}
	}

	if _, err := db.NodeDepth("nope"); err == nil {
		t.Error("NodeDepth() expected error for missing node")
	}
}

func TestSQLiteDatabase_DeleteNodes(t *testing.T) {
	t.Run("cascades contents, versions and snapshots", func(t *testing.T) {
		db, _ := newTestDB(t)

		leaf := mkNode(t, db, "leaf", nil, 0)
		mkContent(t, db, "c1", &leaf.ID)
		v := &model.Version{ID: "v1", ContentID: "c1", Name: "Original", CreatedAt: testTime, UpdatedAt: testTime}
		snap := &model.Snapshot{ID: "s1", VersionID: "v1", Body: "text", CreatedAt: testTime, UpdatedAt: testTime}
		if err := db.CreateVersionWithSnapshot(v, snap); err != nil {
			t.Fatalf("CreateVersionWithSnapshot() error = %v", err)
		}

		if err := db.DeleteNodes([]string{"leaf"}); err != nil {
			t.Fatalf("DeleteNodes() error = %v", err)
		}

		if c, _ := db.GetContent("c1"); c != nil {
			t.Error("content survived node delete")
		}
		if got, _ := db.GetVersion("v1"); got != nil {
			t.Error("version survived node delete")
		}
		if got, _ := db.GetSnapshot("s1"); got != nil {
			t.Error("snapshot survived node delete")
		}
	})
}

func TestSQLiteDatabase_ActivateVersion(t *testing.T) {
	t.Run("activates the newest snapshot", func(t *testing.T) {
		db, _ := newTestDB(t)

		mkContent(t, db, "c1", nil)
		v := &model.Version{ID: "v1", ContentID: "c1", Name: "Original", CreatedAt: testTime, UpdatedAt: testTime}
		s1 := &model.Snapshot{ID: "s1", VersionID: "v1", Body: "old", CreatedAt: testTime, UpdatedAt: testTime}
		if err := db.CreateVersionWithSnapshot(v, s1); err != nil {
			t.Fatalf("CreateVersionWithSnapshot() error = %v", err)
		}
		s2 := &model.Snapshot{ID: "s2", VersionID: "v1", Body: "new", CreatedAt: testTime.Add(time.Minute), UpdatedAt: testTime.Add(time.Minute)}
		if err := db.CreateSnapshotActivate(s2, "c1"); err != nil {
			t.Fatalf("CreateSnapshotActivate() error = %v", err)
		}

		sentinel := &model.Snapshot{ID: "sent-1", VersionID: "v1", CreatedAt: testTime, UpdatedAt: testTime}
		activated, err := db.ActivateVersion("c1", "v1", sentinel)
		if err != nil {
			t.Fatalf("ActivateVersion() error = %v", err)
		}
		if activated != "s2" {
			t.Errorf("activated = %s, want s2", activated)
		}
		// The sentinel was not needed and must not exist.
		if got, _ := db.GetSnapshot("sent-1"); got != nil {
			t.Error("sentinel inserted despite existing snapshots")
		}
	})

	t.Run("inserts the sentinel for an empty version", func(t *testing.T) {
		db, sqlDB := newTestDB(t)

		mkContent(t, db, "c1", nil)
		// A version with no snapshots, inserted behind the interface's back.
		if _, err := sqlDB.Exec(
			"INSERT INTO versions (id, content_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			"v-empty", "c1", "Empty", testTime, testTime); err != nil {
			t.Fatalf("inserting bare version: %v", err)
		}

		sentinel := &model.Snapshot{ID: "sent-1", VersionID: "v-empty", Body: "", CreatedAt: testTime, UpdatedAt: testTime}
		activated, err := db.ActivateVersion("c1", "v-empty", sentinel)
		if err != nil {
			t.Fatalf("ActivateVersion() error = %v", err)
		}
		if activated != "sent-1" {
			t.Errorf("activated = %s, want sent-1", activated)
		}

		content, _ := db.GetContent("c1")
		if content.ActiveSnapshotID == nil || *content.ActiveSnapshotID != "sent-1" {
			t.Errorf("active snapshot = %v, want sent-1", content.ActiveSnapshotID)
		}
		snap, _ := db.GetSnapshot("sent-1")
		if snap == nil || snap.Body != "" {
			t.Errorf("sentinel snapshot = %+v, want empty body", snap)
		}
	})
}

func TestSQLiteDatabase_EvictSnapshots(t *testing.T) {
	seed := func(t *testing.T, db *database.SQLiteDatabase, n int) {
		t.Helper()
		mkContent(t, db, "c1", nil)
		v := &model.Version{ID: "v1", ContentID: "c1", Name: "Original", CreatedAt: testTime, UpdatedAt: testTime}
		first := &model.Snapshot{ID: "s1", VersionID: "v1", Body: "1", CreatedAt: testTime, UpdatedAt: testTime}
		if err := db.CreateVersionWithSnapshot(v, first); err != nil {
			t.Fatalf("CreateVersionWithSnapshot() error = %v", err)
		}
		for i := 2; i <= n; i++ {
			at := testTime.Add(time.Duration(i) * time.Minute)
			snap := &model.Snapshot{
				ID:        "s" + string(rune('0'+i)),
				VersionID: "v1",
				Body:      string(rune('0' + i)),
				CreatedAt: at,
				UpdatedAt: at,
			}
			if err := db.CreateSnapshotActivate(snap, "c1"); err != nil {
				t.Fatalf("CreateSnapshotActivate() error = %v", err)
			}
		}
	}

	t.Run("deletes beyond the newest keepCount", func(t *testing.T) {
		db, _ := newTestDB(t)
		seed(t, db, 5)

		evicted, err := db.EvictSnapshots("v1", 3)
		if err != nil {
			t.Fatalf("EvictSnapshots() error = %v", err)
		}
		if evicted != 2 {
			t.Errorf("evicted = %d, want 2", evicted)
		}
		snaps, _ := db.ListSnapshots("v1")
		if len(snaps) != 3 || snaps[2].ID != "s3" {
			t.Errorf("remaining = %+v, want s5..s3", snaps)
		}
	})

	t.Run("reassigns an evicted active snapshot to the newest retained", func(t *testing.T) {
		db, _ := newTestDB(t)
		seed(t, db, 5)

		if err := db.ActivateSnapshot("c1", "s1"); err != nil {
			t.Fatalf("ActivateSnapshot() error = %v", err)
		}

		if _, err := db.EvictSnapshots("v1", 3); err != nil {
			t.Fatalf("EvictSnapshots() error = %v", err)
		}
		content, _ := db.GetContent("c1")
		if content.ActiveSnapshotID == nil || *content.ActiveSnapshotID != "s5" {
			t.Errorf("active snapshot = %v, want s5", content.ActiveSnapshotID)
		}
	})

	t.Run("never evicts below one snapshot and is idempotent", func(t *testing.T) {
		db, _ := newTestDB(t)
		seed(t, db, 2)

		if evicted, _ := db.EvictSnapshots("v1", 1); evicted != 1 {
			t.Errorf("evicted = %d, want 1", evicted)
		}
		if evicted, _ := db.EvictSnapshots("v1", 1); evicted != 0 {
			t.Errorf("second eviction = %d, want 0", evicted)
		}
		snaps, _ := db.ListSnapshots("v1")
		if len(snaps) != 1 {
			t.Errorf("remaining = %d, want 1", len(snaps))
		}
	})

	t.Run("rejects a non-positive keep count", func(t *testing.T) {
		db, _ := newTestDB(t)
		seed(t, db, 2)
		if _, err := db.EvictSnapshots("v1", 0); err == nil {
			t.Error("EvictSnapshots(0) expected error")
		}
	})
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	t.Run("errors on an empty database", func(t *testing.T) {
		sqlDB, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		db := database.NewSQLiteDatabaseFromDB(sqlDB)
		defer db.Close()

		if err := db.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() expected error for missing schema")
		}
	})

	t.Run("passes after migrating up", func(t *testing.T) {
		sqlDB, err := database.OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		db := database.NewSQLiteDatabaseFromDB(sqlDB)
		defer db.Close()

		if err := db.MigrateUp(); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}
		if err := db.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})
}
