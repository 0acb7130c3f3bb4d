package quill

import "fmt"

// OwnerKind identifies which table a store owner lives in.
type OwnerKind string

const (
	OwnerNode    OwnerKind = "node"
	OwnerContent OwnerKind = "content"
)

// OwnerRef addresses a store-owning entity.
type OwnerRef struct {
	Kind OwnerKind
	ID   string
}

// resolveBranchStore opens the owner's store as a BranchStore and
// returns its recorded active branch plus a setter that persists
// branch changes on the owning row. The active branch is row state,
// never cached inside the store.
func (s *Service) resolveBranchStore(owner OwnerRef) (BranchStore, string, func(string) error, error) {
	if s.stores.Strategy() != StrategyBranching {
		return nil, "", nil, fmt.Errorf("branch operations require the branching store strategy (active: %s)", s.stores.Strategy())
	}

	var ref, active *string
	var setBranch func(string) error

	switch owner.Kind {
	case OwnerNode:
		node, err := s.GetNode(owner.ID)
		if err != nil {
			return nil, "", nil, err
		}
		ref, active = node.StoreRef, node.ActiveBranch
		setBranch = func(b string) error { return s.db.SetNodeActiveBranch(owner.ID, b) }
	case OwnerContent:
		content, err := s.GetContent(owner.ID)
		if err != nil {
			return nil, "", nil, err
		}
		ref, active = content.StoreRef, content.ActiveBranch
		setBranch = func(b string) error { return s.db.SetContentActiveBranch(owner.ID, b) }
	default:
		return nil, "", nil, fmt.Errorf("unknown owner kind: %s", owner.Kind)
	}

	if ref == nil {
		return nil, "", nil, fmt.Errorf("%s %s owns no store: %w", owner.Kind, owner.ID, ErrNotFound)
	}

	store, err := s.stores.Open(owner.ID, *ref)
	if err != nil {
		return nil, "", nil, fmt.Errorf("opening store: %w", err)
	}
	bs, ok := store.(BranchStore)
	if !ok {
		return nil, "", nil, fmt.Errorf("store for %s %s does not support branches", owner.Kind, owner.ID)
	}

	branch := DefaultBranch
	if active != nil {
		branch = *active
	}
	return bs, branch, setBranch, nil
}

// CreateBranch creates a branch off the owner's active branch and
// returns its slug. The display name is recorded in the store's
// metadata map.
func (s *Service) CreateBranch(owner OwnerRef, displayName string) (string, error) {
	store, active, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return "", err
	}
	slug, err := store.CreateBranch(active, displayName)
	if err != nil {
		return "", fmt.Errorf("creating branch: %w", err)
	}
	s.logger.Info("branch created", "owner", owner.ID, "branch", slug)
	return slug, nil
}

// SwitchBranch checks out the named branch and records it as the
// owner's active branch.
func (s *Service) SwitchBranch(owner OwnerRef, slug string) error {
	store, _, setBranch, err := s.resolveBranchStore(owner)
	if err != nil {
		return err
	}
	if err := store.Checkout(slug); err != nil {
		return fmt.Errorf("checking out branch: %w", err)
	}
	if err := setBranch(slug); err != nil {
		return fmt.Errorf("recording active branch: %w", err)
	}
	s.logger.Info("branch switched", "owner", owner.ID, "branch", slug)
	return nil
}

// RenameBranch updates a branch's display name.
func (s *Service) RenameBranch(owner OwnerRef, slug, displayName string) error {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return err
	}
	if err := store.RenameBranch(slug, displayName); err != nil {
		return fmt.Errorf("renaming branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch. The active branch and the sole
// remaining branch cannot be deleted.
func (s *Service) DeleteBranch(owner OwnerRef, slug string) error {
	store, active, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return err
	}
	if slug == active {
		return fmt.Errorf("branch %q is checked out; switch away before deleting", slug)
	}
	if err := store.DeleteBranch(slug); err != nil {
		return fmt.Errorf("deleting branch: %w", err)
	}
	s.logger.Info("branch deleted", "owner", owner.ID, "branch", slug)
	return nil
}

// ListBranches returns the owner's branches with display names.
func (s *Service) ListBranches(owner OwnerRef) ([]BranchInfo, error) {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return nil, err
	}
	branches, err := store.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

// MergeBranches merges branch from into branch into. Conflicting paths
// come back in the result rather than as an error.
func (s *Service) MergeBranches(owner OwnerRef, from, into string) (*MergeResult, error) {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return nil, err
	}
	result, err := store.Merge(from, into)
	if err != nil {
		return nil, fmt.Errorf("merging branches: %w", err)
	}
	if result.Merged() {
		s.logger.Info("branches merged", "owner", owner.ID, "from", from, "into", into)
	} else {
		s.logger.Warn("merge conflicts", "owner", owner.ID, "paths", len(result.Conflicts))
	}
	return result, nil
}

// DiffBranches compares two branches or commits.
func (s *Service) DiffBranches(owner OwnerRef, a, b string) (*DiffResult, error) {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return nil, err
	}
	diff, err := store.Diff(a, b)
	if err != nil {
		return nil, fmt.Errorf("diffing: %w", err)
	}
	return diff, nil
}

// BranchHistory returns a branch's commits, newest first.
func (s *Service) BranchHistory(owner OwnerRef, branch string) ([]RevisionInfo, error) {
	store, active, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = active
	}
	history, err := store.History(branch)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return history, nil
}

// RestoreCommit checks out a historical commit's content as a new
// commit on the owner's active branch, preserving history.
func (s *Service) RestoreCommit(owner OwnerRef, commitID string) (string, error) {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return "", err
	}
	newCommit, err := store.Restore(commitID)
	if err != nil {
		return "", fmt.Errorf("restoring commit: %w", err)
	}
	s.logger.Info("commit restored", "owner", owner.ID, "commit", commitID)
	return newCommit, nil
}

// CommitContent records an explicit checkpoint of every pending change
// in the owner's store.
func (s *Service) CommitContent(owner OwnerRef, message string) (string, error) {
	store, _, _, err := s.resolveBranchStore(owner)
	if err != nil {
		return "", err
	}
	id, err := store.CommitAll(message)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return id, nil
}
