package quill

import "time"

// Strategy identifies the version store backend in use.
type Strategy string

const (
	// StrategyBranching keeps revisions as commits on named branches
	// inside a per-entity repository on disk.
	StrategyBranching Strategy = "branching"

	// StrategyLinear keeps revisions as flat, append-only snapshots in
	// the relational store; the per-entity directory holds only a
	// metadata record.
	StrategyLinear Strategy = "linear"
)

// MaxNestingDepth bounds the node tree: a node whose depth (counting
// from its root, inclusive) would exceed this cannot be created or
// moved there.
const MaxNestingDepth = 10

// DefaultBranch is the canonical name of the initial branch in a
// branching store.
const DefaultBranch = "main"

// RevisionInfo describes one stored revision: a commit under the
// branching strategy, a snapshot under the linear one.
type RevisionInfo struct {
	ID        string
	Message   string
	CreatedAt time.Time
}

// BranchInfo pairs a branch's raw slug with its display name.
// Raw slugs are never shown to users; the display map lives in the
// store's metadata record.
type BranchInfo struct {
	Slug        string
	DisplayName string
}

// ChangeKind classifies one file's change between two revisions.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileDiff is one file's change with its unified diff text.
type FileDiff struct {
	Path  string
	Kind  ChangeKind
	Patch string
}

// DiffResult groups the file changes between two branches or commits.
type DiffResult struct {
	Added    []FileDiff
	Modified []FileDiff
	Deleted  []FileDiff
}

// MergeResult reports the outcome of a merge. A merge with conflicts is
// not an error: Conflicts lists the paths changed incompatibly on both
// sides and no commit is made.
type MergeResult struct {
	CommitID  string
	Conflicts []string
}

// Merged reports whether the merge completed.
func (r *MergeResult) Merged() bool { return len(r.Conflicts) == 0 }

// VersionStore is the strategy-agnostic surface over one entity's
// revision history. Exactly one owner exists per store.
type VersionStore interface {
	// WriteRevision persists content under name as a new revision and
	// returns the revision id.
	WriteRevision(name string, content []byte, message string) (string, error)

	// ListRevisions returns revision metadata, newest first.
	ListRevisions() ([]RevisionInfo, error)

	// ReadRevision returns the content stored under name at revision id.
	ReadRevision(id string, name string) ([]byte, error)

	// SwitchActive makes revision id the active one.
	SwitchActive(id string) error
}

// BranchStore extends VersionStore with the branching strategy's
// operations. The store never caches the active branch; that state
// lives on the owning row and is passed in by the caller.
type BranchStore interface {
	VersionStore

	// CommitPath writes content to path and commits it.
	CommitPath(path string, content []byte, message string) (string, error)

	// RemovePath deletes path from the working tree and commits the
	// removal.
	RemovePath(path string, message string) (string, error)

	// CommitAll commits every pending change in the working tree.
	CommitAll(message string) (string, error)

	// CreateBranch creates a branch off parent and returns its slug.
	// Fails with ErrDuplicateName if the display name is taken.
	CreateBranch(parent string, displayName string) (string, error)

	// Checkout switches the working tree to the named branch. Fails
	// with ErrNotFound if the branch is missing and
	// ErrUncommittedChanges if the working tree is dirty.
	Checkout(slug string) error

	// RenameBranch updates a branch's display name.
	RenameBranch(slug string, displayName string) error

	// DeleteBranch removes a branch. Fails with ErrLastItem on the sole
	// remaining branch.
	DeleteBranch(slug string) error

	// Branches lists all branches with their display names.
	Branches() ([]BranchInfo, error)

	// Diff compares two branches or commit ids.
	Diff(a, b string) (*DiffResult, error)

	// Merge merges branch from into branch into. Conflicting paths are
	// returned in the result, not as an error.
	Merge(from, into string) (*MergeResult, error)

	// History returns the commits reachable from branch, newest first.
	History(branch string) ([]RevisionInfo, error)

	// Restore checks out the content of a historical commit as a new
	// commit on the current branch, preserving history.
	Restore(commitID string) (string, error)
}

// StoreManager creates, opens and removes version stores at
// deterministic per-owner paths under a fixed root. It is the only
// component that touches store directories, which keeps the attach
// protocol strategy-agnostic.
type StoreManager interface {
	Strategy() Strategy

	// Create initializes a store for ownerID and returns the store
	// reference and the initial active branch ("" under the linear
	// strategy).
	Create(ownerID string) (ref string, branch string, err error)

	// Open returns the store referenced by ref for ownerID.
	Open(ownerID string, ref string) (VersionStore, error)

	// Remove deletes the on-disk store for ownerID. Removing a store
	// that does not exist is not an error.
	Remove(ownerID string) error

	// Path returns the directory a store for ownerID lives at, whether
	// or not it exists.
	Path(ownerID string) string
}
