package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quill-go/internal/quill"
	"quill-go/internal/store"
	"quill-go/internal/testutil"
)

func newGitStore(t *testing.T) (*store.GitStoreManager, quill.BranchStore, string) {
	t.Helper()
	m := store.NewGitStoreManager(t.TempDir(), testutil.FixedClock())

	ref, branch, err := m.Create("owner-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if branch != quill.DefaultBranch {
		t.Fatalf("Create() branch = %q, want %s", branch, quill.DefaultBranch)
	}

	s, err := m.Open("owner-1", ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	bs, ok := s.(quill.BranchStore)
	if !ok {
		t.Fatal("Open() did not return a BranchStore")
	}
	return m, bs, ref
}

func TestGitStoreManager_Create(t *testing.T) {
	t.Run("initializes directory, metadata and default branch", func(t *testing.T) {
		m, s, _ := newGitStore(t)

		if _, err := os.Stat(filepath.Join(m.Path("owner-1"), "store.toml")); err != nil {
			t.Errorf("metadata record missing: %v", err)
		}

		branches, err := s.Branches()
		if err != nil {
			t.Fatalf("Branches() error = %v", err)
		}
		if len(branches) != 1 || branches[0].Slug != quill.DefaultBranch {
			t.Errorf("Branches() = %+v, want just %s", branches, quill.DefaultBranch)
		}
		if branches[0].DisplayName != "Main" {
			t.Errorf("display name = %q, want Main", branches[0].DisplayName)
		}
	})

	t.Run("rejects an existing directory", func(t *testing.T) {
		m, _, _ := newGitStore(t)
		if _, _, err := m.Create("owner-1"); err == nil {
			t.Error("Create() expected error for existing store")
		}
	})
}

func TestGitStoreManager_Open_Corruption(t *testing.T) {
	t.Run("missing metadata record", func(t *testing.T) {
		m, _, ref := newGitStore(t)

		os.Remove(filepath.Join(m.Path("owner-1"), "store.toml"))

		_, err := m.Open("owner-1", ref)
		if !errors.Is(err, quill.ErrStoreCorrupted) {
			t.Errorf("Open() error = %v, want ErrStoreCorrupted", err)
		}
	})

	t.Run("missing history root", func(t *testing.T) {
		m, _, ref := newGitStore(t)

		os.RemoveAll(filepath.Join(m.Path("owner-1"), "repo"))

		_, err := m.Open("owner-1", ref)
		if !errors.Is(err, quill.ErrStoreCorrupted) {
			t.Errorf("Open() error = %v, want ErrStoreCorrupted", err)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		m, _, _ := newGitStore(t)
		if err := m.Remove("owner-1"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := m.Remove("owner-1"); err != nil {
			t.Errorf("second Remove() error = %v", err)
		}
	})
}

func TestGitStore_Revisions(t *testing.T) {
	t.Run("commit and read back", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		id, err := s.CommitPath("a.md", []byte("hello"), "Add a")
		if err != nil {
			t.Fatalf("CommitPath() error = %v", err)
		}

		data, err := s.ReadRevision("", "a.md")
		if err != nil {
			t.Fatalf("ReadRevision(worktree) error = %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("worktree content = %q, want hello", data)
		}

		data, err = s.ReadRevision(id, "a.md")
		if err != nil {
			t.Fatalf("ReadRevision(commit) error = %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("committed content = %q, want hello", data)
		}
	})

	t.Run("reading an old revision", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		first, _ := s.CommitPath("a.md", []byte("v1"), "Add a")
		s.CommitPath("a.md", []byte("v2"), "Update a")

		data, err := s.ReadRevision(first, "a.md")
		if err != nil {
			t.Fatalf("ReadRevision() error = %v", err)
		}
		if string(data) != "v1" {
			t.Errorf("content at first commit = %q, want v1", data)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, s, _ := newGitStore(t)
		if _, err := s.ReadRevision("", "nope.md"); !errors.Is(err, quill.ErrNotFound) {
			t.Errorf("ReadRevision() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("remove path", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("hello"), "Add a")
		if _, err := s.RemovePath("a.md", "Remove a"); err != nil {
			t.Fatalf("RemovePath() error = %v", err)
		}
		if _, err := s.ReadRevision("", "a.md"); !errors.Is(err, quill.ErrNotFound) {
			t.Errorf("ReadRevision() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list revisions newest first", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("v1"), "Add a")
		s.CommitPath("a.md", []byte("v2"), "Update a")

		revisions, err := s.ListRevisions()
		if err != nil {
			t.Fatalf("ListRevisions() error = %v", err)
		}
		if len(revisions) != 3 {
			t.Fatalf("revision count = %d, want 3", len(revisions))
		}
		if revisions[0].Message != "Update a" {
			t.Errorf("newest message = %q, want Update a", revisions[0].Message)
		}
	})
}

func TestGitStore_Branching(t *testing.T) {
	t.Run("slugs collide onto numbered suffixes", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		first, err := s.CreateBranch(quill.DefaultBranch, "Draft!")
		if err != nil {
			t.Fatalf("CreateBranch() error = %v", err)
		}
		if first != "draft" {
			t.Errorf("slug = %q, want draft", first)
		}

		second, err := s.CreateBranch(quill.DefaultBranch, "Draft?")
		if err != nil {
			t.Fatalf("CreateBranch() error = %v", err)
		}
		if second != "draft-2" {
			t.Errorf("slug = %q, want draft-2", second)
		}
	})

	t.Run("checkout blocks on a dirty worktree", func(t *testing.T) {
		m, s, _ := newGitStore(t)

		s.CreateBranch(quill.DefaultBranch, "Experiment")

		path := filepath.Join(m.Path("owner-1"), "repo", "dirty.md")
		if err := os.WriteFile(path, []byte("uncommitted"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		err := s.Checkout("experiment")
		if !errors.Is(err, quill.ErrUncommittedChanges) {
			t.Errorf("Checkout() error = %v, want ErrUncommittedChanges", err)
		}
	})

	t.Run("branches diverge independently", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("base"), "Add a")
		s.CreateBranch(quill.DefaultBranch, "Experiment")
		if err := s.Checkout("experiment"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("a.md", []byte("experimental"), "Try something")

		if err := s.Checkout(quill.DefaultBranch); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		data, _ := s.ReadRevision("", "a.md")
		if string(data) != "base" {
			t.Errorf("main content = %q, want base", data)
		}
	})

	t.Run("delete branch updates the metadata map", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		slug, _ := s.CreateBranch(quill.DefaultBranch, "Doomed")
		if err := s.DeleteBranch(slug); err != nil {
			t.Fatalf("DeleteBranch() error = %v", err)
		}
		branches, _ := s.Branches()
		if len(branches) != 1 {
			t.Errorf("branch count = %d, want 1", len(branches))
		}
	})

	t.Run("cannot delete the last branch", func(t *testing.T) {
		_, s, _ := newGitStore(t)
		if err := s.DeleteBranch(quill.DefaultBranch); !errors.Is(err, quill.ErrLastItem) {
			t.Errorf("DeleteBranch() error = %v, want ErrLastItem", err)
		}
	})

	t.Run("restores the reference when the metadata write fails", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission checks do not apply to root")
		}
		m, s, _ := newGitStore(t)

		slug, _ := s.CreateBranch(quill.DefaultBranch, "Doomed")

		// A read-only store directory lets the metadata record be read
		// but not rewritten.
		dir := m.Path("owner-1")
		if err := os.Chmod(dir, 0555); err != nil {
			t.Fatalf("Chmod() error = %v", err)
		}
		t.Cleanup(func() { os.Chmod(dir, 0755) })

		if err := s.DeleteBranch(slug); err == nil {
			t.Fatal("DeleteBranch() expected error")
		}

		os.Chmod(dir, 0755)
		branches, err := s.Branches()
		if err != nil {
			t.Fatalf("Branches() error = %v", err)
		}
		found := false
		for _, b := range branches {
			if b.Slug == slug {
				found = true
			}
		}
		if !found {
			t.Errorf("branch %q missing after failed delete: %+v", slug, branches)
		}
		if err := s.Checkout(slug); err != nil {
			t.Errorf("Checkout(%q) after failed delete: %v", slug, err)
		}
	})
}

func TestGitStore_Diff(t *testing.T) {
	t.Run("classifies added, modified and deleted files", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("keep.md", []byte("same"), "Add keep")
		s.CommitPath("change.md", []byte("before"), "Add change")
		s.CommitPath("gone.md", []byte("doomed"), "Add gone")

		s.CreateBranch(quill.DefaultBranch, "Experiment")
		if err := s.Checkout("experiment"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("change.md", []byte("after"), "Update change")
		s.CommitPath("new.md", []byte("fresh"), "Add new")
		s.RemovePath("gone.md", "Remove gone")

		diff, err := s.Diff(quill.DefaultBranch, "experiment")
		if err != nil {
			t.Fatalf("Diff() error = %v", err)
		}
		if len(diff.Added) != 1 || diff.Added[0].Path != "new.md" {
			t.Errorf("Added = %+v, want new.md", diff.Added)
		}
		if len(diff.Modified) != 1 || diff.Modified[0].Path != "change.md" {
			t.Errorf("Modified = %+v, want change.md", diff.Modified)
		}
		if len(diff.Deleted) != 1 || diff.Deleted[0].Path != "gone.md" {
			t.Errorf("Deleted = %+v, want gone.md", diff.Deleted)
		}
	})
}

func TestGitStore_Merge(t *testing.T) {
	t.Run("fast-forwards when the target has not moved", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("base"), "Add a")
		s.CreateBranch(quill.DefaultBranch, "Feature")
		if err := s.Checkout("feature"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		tip, _ := s.CommitPath("a.md", []byte("improved"), "Improve a")

		result, err := s.Merge("feature", quill.DefaultBranch)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if !result.Merged() {
			t.Fatalf("merge reported conflicts: %v", result.Conflicts)
		}
		if result.CommitID != tip {
			t.Errorf("CommitID = %s, want fast-forward to %s", result.CommitID, tip)
		}
	})

	t.Run("merges disjoint changes with a merge commit", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("base"), "Add a")
		s.CreateBranch(quill.DefaultBranch, "Feature")
		if err := s.Checkout("feature"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("b.md", []byte("feature work"), "Add b")

		if err := s.Checkout(quill.DefaultBranch); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("c.md", []byte("main work"), "Add c")

		result, err := s.Merge("feature", quill.DefaultBranch)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if !result.Merged() {
			t.Fatalf("merge reported conflicts: %v", result.Conflicts)
		}

		// Both sides' files exist on the target branch.
		for _, name := range []string{"a.md", "b.md", "c.md"} {
			if _, err := s.ReadRevision("", name); err != nil {
				t.Errorf("ReadRevision(%s) error = %v", name, err)
			}
		}
	})

	t.Run("reports conflicts and commits nothing", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("base"), "Add a")
		s.CreateBranch(quill.DefaultBranch, "Feature")
		if err := s.Checkout("feature"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("a.md", []byte("feature side"), "Feature change")

		if err := s.Checkout(quill.DefaultBranch); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("a.md", []byte("main side"), "Main change")

		before, _ := s.History(quill.DefaultBranch)

		result, err := s.Merge("feature", quill.DefaultBranch)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if result.Merged() {
			t.Fatal("merge should have reported conflicts")
		}
		if len(result.Conflicts) != 1 || result.Conflicts[0] != "a.md" {
			t.Errorf("Conflicts = %v, want [a.md]", result.Conflicts)
		}

		after, _ := s.History(quill.DefaultBranch)
		if len(after) != len(before) {
			t.Errorf("history grew from %d to %d despite conflicts", len(before), len(after))
		}
	})

	t.Run("identical changes on both sides are not conflicts", func(t *testing.T) {
		_, s, _ := newGitStore(t)

		s.CommitPath("a.md", []byte("base"), "Add a")
		s.CreateBranch(quill.DefaultBranch, "Feature")
		if err := s.Checkout("feature"); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("a.md", []byte("converged"), "Same change")

		if err := s.Checkout(quill.DefaultBranch); err != nil {
			t.Fatalf("Checkout() error = %v", err)
		}
		s.CommitPath("a.md", []byte("converged"), "Same change")

		result, err := s.Merge("feature", quill.DefaultBranch)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if !result.Merged() {
			t.Errorf("merge reported conflicts: %v", result.Conflicts)
		}
	})
}

func TestGitStore_Restore(t *testing.T) {
	t.Run("restores an old tree as a new commit", func(t *testing.T) {
		m := store.NewGitStoreManager(t.TempDir(), testutil.NewStubClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
		ref, _, err := m.Create("owner-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		vs, err := m.Open("owner-1", ref)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		s := vs.(quill.BranchStore)

		first, _ := s.CommitPath("a.md", []byte("v1"), "Add a")
		s.CommitPath("a.md", []byte("v2"), "Update a")
		s.CommitPath("b.md", []byte("later file"), "Add b")

		before, _ := s.History(quill.DefaultBranch)

		if _, err := s.Restore(first); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}

		data, _ := s.ReadRevision("", "a.md")
		if string(data) != "v1" {
			t.Errorf("restored content = %q, want v1", data)
		}
		// b.md did not exist at the target revision.
		if _, err := s.ReadRevision("", "b.md"); !errors.Is(err, quill.ErrNotFound) {
			t.Errorf("ReadRevision(b.md) error = %v, want ErrNotFound", err)
		}

		after, _ := s.History(quill.DefaultBranch)
		if len(after) != len(before)+1 {
			t.Errorf("history len = %d, want %d", len(after), len(before)+1)
		}
	})
}
