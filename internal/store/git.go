package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"quill-go/internal/quill"
)

const (
	repoDirName = "repo"

	authorName  = "quill"
	authorEmail = "quill@localhost"
)

// GitStoreManager creates and opens branching version stores. Each
// owner gets <root>/<ownerID>/ holding the metadata record and a
// repository under repo/.
type GitStoreManager struct {
	root  string
	clock quill.Clock
}

func NewGitStoreManager(root string, clock quill.Clock) *GitStoreManager {
	return &GitStoreManager{root: root, clock: clock}
}

func (m *GitStoreManager) Strategy() quill.Strategy { return quill.StrategyBranching }

func (m *GitStoreManager) Path(ownerID string) string {
	return filepath.Join(m.root, ownerID)
}

// Create initializes a store for ownerID: repository, metadata record,
// one initial commit, and the default branch renamed to its canonical
// name. A partially created directory is removed before returning an
// error, so the caller sees all or nothing.
func (m *GitStoreManager) Create(ownerID string) (string, string, error) {
	dir := m.Path(ownerID)
	if _, err := os.Stat(dir); err == nil {
		return "", "", fmt.Errorf("store directory already exists: %s", dir)
	}

	ref, branch, err := m.create(ownerID, dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}
	return ref, branch, nil
}

func (m *GitStoreManager) create(ownerID, dir string) (string, string, error) {
	repoDir := filepath.Join(dir, repoDirName)
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		return "", "", fmt.Errorf("creating store directory: %w", err)
	}

	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		return "", "", fmt.Errorf("initializing repository: %w", err)
	}

	meta := &Meta{
		ID:            ownerID,
		CreatedAt:     m.clock.Now(),
		SchemaVersion: metaSchemaVersion,
		Branches:      map[string]string{quill.DefaultBranch: "Main"},
	}
	if err := writeMeta(dir, meta); err != nil {
		return "", "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", "", fmt.Errorf("opening worktree: %w", err)
	}
	_, err = wt.Commit("Initialize store", &git.CommitOptions{
		Author:            m.signature(),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("creating initial commit: %w", err)
	}

	if err := renameDefaultBranch(repo); err != nil {
		return "", "", err
	}

	return ownerID, quill.DefaultBranch, nil
}

// renameDefaultBranch moves the init-time default branch to the
// canonical name.
func renameDefaultBranch(repo *git.Repository) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving head: %w", err)
	}
	canonical := plumbing.NewBranchReferenceName(quill.DefaultBranch)
	if head.Name() == canonical {
		return nil
	}

	if err := repo.Storer.SetReference(plumbing.NewHashReference(canonical, head.Hash())); err != nil {
		return fmt.Errorf("creating canonical branch: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, canonical)); err != nil {
		return fmt.Errorf("repointing head: %w", err)
	}
	if err := repo.Storer.RemoveReference(head.Name()); err != nil {
		return fmt.Errorf("removing default branch: %w", err)
	}
	return nil
}

// Open validates the store's on-disk state and returns it. Missing
// metadata, a missing history root, a missing head reference or an
// empty branch set are reported as corruption with a remediation
// recommendation, never repaired.
func (m *GitStoreManager) Open(ownerID string, ref string) (quill.VersionStore, error) {
	dir := m.Path(ownerID)

	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		return nil, fmt.Errorf("%w: metadata record missing at %s; restore it or reinitialize the store (history will be lost)",
			quill.ErrStoreCorrupted, dir)
	}

	repo, err := git.PlainOpen(filepath.Join(dir, repoDirName))
	if err != nil {
		return nil, fmt.Errorf("%w: history root missing at %s; reinitialize the store (history will be lost)",
			quill.ErrStoreCorrupted, dir)
	}
	if _, err := repo.Head(); err != nil {
		return nil, fmt.Errorf("%w: missing head reference in %s; repair the repository manually or reinitialize (history will be lost)",
			quill.ErrStoreCorrupted, dir)
	}

	branches, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	count := 0
	branches.ForEach(func(*plumbing.Reference) error { count++; return nil })
	if count == 0 {
		return nil, fmt.Errorf("%w: empty branch set in %s; repair the repository manually or reinitialize (history will be lost)",
			quill.ErrStoreCorrupted, dir)
	}

	return &GitStore{dir: dir, repo: repo, clock: m.clock}, nil
}

// Remove deletes the owner's store directory. Removing a store that
// does not exist is not an error.
func (m *GitStoreManager) Remove(ownerID string) error {
	return os.RemoveAll(m.Path(ownerID))
}

func (m *GitStoreManager) signature() *object.Signature {
	return &object.Signature{Name: authorName, Email: authorEmail, When: m.clock.Now()}
}

var _ quill.StoreManager = (*GitStoreManager)(nil)

// GitStore is one entity's branching version store. It holds no
// mutable branch state; the active branch lives on the owning row.
type GitStore struct {
	dir   string
	repo  *git.Repository
	clock quill.Clock
}

var _ quill.BranchStore = (*GitStore)(nil)

func (s *GitStore) repoDir() string {
	return filepath.Join(s.dir, repoDirName)
}

func (s *GitStore) signature() *object.Signature {
	return &object.Signature{Name: authorName, Email: authorEmail, When: s.clock.Now()}
}

func (s *GitStore) commit(wt *git.Worktree, message string, parents ...plumbing.Hash) (plumbing.Hash, error) {
	return wt.Commit(message, &git.CommitOptions{
		Author:            s.signature(),
		AllowEmptyCommits: true,
		Parents:           parents,
	})
}

// CommitPath writes content to path inside the working tree and
// commits it.
func (s *GitStore) CommitPath(path string, content []byte, message string) (string, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	full := filepath.Join(s.repoDir(), path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return "", fmt.Errorf("staging file: %w", err)
	}

	hash, err := s.commit(wt, message)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// RemovePath deletes path from the working tree and commits the
// removal.
func (s *GitStore) RemovePath(path string, message string) (string, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	if _, err := wt.Remove(path); err != nil {
		return "", fmt.Errorf("removing file: %w", err)
	}
	hash, err := s.commit(wt, message)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// CommitAll commits every pending change in the working tree.
func (s *GitStore) CommitAll(message string) (string, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging changes: %w", err)
	}
	hash, err := s.commit(wt, message)
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// WriteRevision persists content under name as a commit.
func (s *GitStore) WriteRevision(name string, content []byte, message string) (string, error) {
	return s.CommitPath(name, content, message)
}

// ListRevisions returns the current branch's commits, newest first.
func (s *GitStore) ListRevisions() ([]quill.RevisionInfo, error) {
	head, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving head: %w", err)
	}
	return s.log(head.Hash())
}

// ReadRevision returns the content of name at commit id. An empty id
// reads the current working tree.
func (s *GitStore) ReadRevision(id string, name string) ([]byte, error) {
	if id == "" {
		data, err := os.ReadFile(filepath.Join(s.repoDir(), name))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("file %s: %w", name, quill.ErrNotFound)
			}
			return nil, fmt.Errorf("reading file: %w", err)
		}
		return data, nil
	}

	commit, err := s.resolveCommit(id)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(name)
	if err != nil {
		return nil, fmt.Errorf("file %s at %s: %w", name, id, quill.ErrNotFound)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading file at revision: %w", err)
	}
	return []byte(contents), nil
}

// SwitchActive checks out the branch named id.
func (s *GitStore) SwitchActive(id string) error {
	return s.Checkout(id)
}

// CreateBranch creates a branch off parent, records its display name
// in the metadata map, and returns the slug. The reference and the
// metadata record move together: a failed metadata write rolls the
// reference back.
func (s *GitStore) CreateBranch(parent string, displayName string) (string, error) {
	meta, err := readMeta(s.dir)
	if err != nil {
		return "", err
	}
	for _, name := range meta.Branches {
		if name == displayName {
			return "", fmt.Errorf("branch %q: %w", displayName, quill.ErrDuplicateName)
		}
	}

	parentRef, err := s.repo.Reference(plumbing.NewBranchReferenceName(parent), true)
	if err != nil {
		return "", fmt.Errorf("branch %q: %w", parent, quill.ErrNotFound)
	}

	slug := uniqueSlug(displayName, meta.Branches)
	refName := plumbing.NewBranchReferenceName(slug)
	if _, err := s.repo.Reference(refName, false); err == nil {
		return "", fmt.Errorf("branch %q: %w", slug, quill.ErrDuplicateName)
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, parentRef.Hash())); err != nil {
		return "", fmt.Errorf("creating branch reference: %w", err)
	}

	if meta.Branches == nil {
		meta.Branches = make(map[string]string)
	}
	meta.Branches[slug] = displayName
	if err := writeMeta(s.dir, meta); err != nil {
		s.repo.Storer.RemoveReference(refName)
		return "", err
	}

	return slug, nil
}

// Checkout switches the working tree to slug. A dirty working tree
// blocks the switch.
func (s *GitStore) Checkout(slug string) error {
	refName := plumbing.NewBranchReferenceName(slug)
	if _, err := s.repo.Reference(refName, true); err != nil {
		return fmt.Errorf("branch %q: %w", slug, quill.ErrNotFound)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("checking worktree status: %w", err)
	}
	if !status.IsClean() {
		return fmt.Errorf("switching to %q: %w", slug, quill.ErrUncommittedChanges)
	}

	if err := wt.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
		return fmt.Errorf("checking out %q: %w", slug, err)
	}
	return nil
}

// RenameBranch updates a branch's display name in the metadata map.
func (s *GitStore) RenameBranch(slug string, displayName string) error {
	meta, err := readMeta(s.dir)
	if err != nil {
		return err
	}
	if _, ok := meta.Branches[slug]; !ok {
		return fmt.Errorf("branch %q: %w", slug, quill.ErrNotFound)
	}
	for other, name := range meta.Branches {
		if other != slug && name == displayName {
			return fmt.Errorf("branch %q: %w", displayName, quill.ErrDuplicateName)
		}
	}
	meta.Branches[slug] = displayName
	return writeMeta(s.dir, meta)
}

// DeleteBranch removes a branch and its display-name entry. The sole
// remaining branch cannot be deleted.
func (s *GitStore) DeleteBranch(slug string) error {
	branches, err := s.Branches()
	if err != nil {
		return err
	}
	if len(branches) <= 1 {
		return fmt.Errorf("branch %q: %w", slug, quill.ErrLastItem)
	}

	refName := plumbing.NewBranchReferenceName(slug)
	ref, err := s.repo.Reference(refName, false)
	if err != nil {
		return fmt.Errorf("branch %q: %w", slug, quill.ErrNotFound)
	}

	meta, err := readMeta(s.dir)
	if err != nil {
		return err
	}

	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("removing branch reference: %w", err)
	}

	delete(meta.Branches, slug)
	if err := writeMeta(s.dir, meta); err != nil {
		s.repo.Storer.SetReference(plumbing.NewHashReference(refName, ref.Hash()))
		return err
	}
	return nil
}

// Branches lists all branches with display names from the metadata
// map, slug order.
func (s *GitStore) Branches() ([]quill.BranchInfo, error) {
	meta, err := readMeta(s.dir)
	if err != nil {
		return nil, err
	}

	iter, err := s.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}

	var infos []quill.BranchInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		slug := ref.Name().Short()
		display := meta.Branches[slug]
		if display == "" {
			display = slug
		}
		infos = append(infos, quill.BranchInfo{Slug: slug, DisplayName: display})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return infos, nil
}

// Diff compares two branches or commit ids, returning each changed
// file with its unified diff.
func (s *GitStore) Diff(a, b string) (*quill.DiffResult, error) {
	commitA, err := s.resolveCommit(a)
	if err != nil {
		return nil, err
	}
	commitB, err := s.resolveCommit(b)
	if err != nil {
		return nil, err
	}

	treeA, err := commitA.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}
	treeB, err := commitB.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}

	changes, err := object.DiffTree(treeA, treeB)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	result := &quill.DiffResult{}
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("classifying change: %w", err)
		}
		patch, err := change.Patch()
		if err != nil {
			return nil, fmt.Errorf("building patch: %w", err)
		}

		fd := quill.FileDiff{Path: changePath(change), Patch: patch.String()}
		switch action {
		case merkletrie.Insert:
			fd.Kind = quill.ChangeAdded
			result.Added = append(result.Added, fd)
		case merkletrie.Delete:
			fd.Kind = quill.ChangeDeleted
			result.Deleted = append(result.Deleted, fd)
		case merkletrie.Modify:
			fd.Kind = quill.ChangeModified
			result.Modified = append(result.Modified, fd)
		}
	}
	return result, nil
}

// Merge merges branch from into branch into. Paths changed
// incompatibly on both sides since the merge base are returned as
// conflicts and nothing is committed. A clean merge produces a commit
// with both heads as parents (or fast-forwards when into has not
// diverged). The working tree is returned to whatever branch was
// checked out before.
func (s *GitStore) Merge(from, into string) (*quill.MergeResult, error) {
	fromCommit, err := s.branchCommit(from)
	if err != nil {
		return nil, err
	}
	intoCommit, err := s.branchCommit(into)
	if err != nil {
		return nil, err
	}

	bases, err := fromCommit.MergeBase(intoCommit)
	if err != nil {
		return nil, fmt.Errorf("finding merge base: %w", err)
	}
	var baseTree *object.Tree
	if len(bases) > 0 {
		baseTree, err = bases[0].Tree()
		if err != nil {
			return nil, fmt.Errorf("loading base tree: %w", err)
		}
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}
	intoTree, err := intoCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}

	fromChanges, err := object.DiffTree(baseTree, fromTree)
	if err != nil {
		return nil, fmt.Errorf("diffing from-side: %w", err)
	}
	intoChanges, err := object.DiffTree(baseTree, intoTree)
	if err != nil {
		return nil, fmt.Errorf("diffing into-side: %w", err)
	}

	intoByPath := make(map[string]plumbing.Hash, len(intoChanges))
	for _, change := range intoChanges {
		intoByPath[changePath(change)] = change.To.TreeEntry.Hash
	}

	var conflicts []string
	var toApply []*object.Change
	for _, change := range fromChanges {
		path := changePath(change)
		intoHash, touched := intoByPath[path]
		if !touched {
			toApply = append(toApply, change)
			continue
		}
		if intoHash != change.To.TreeEntry.Hash {
			conflicts = append(conflicts, path)
		}
		// Both sides made the identical change: nothing to apply.
	}
	if len(conflicts) > 0 {
		return &quill.MergeResult{Conflicts: conflicts}, nil
	}

	// Fast-forward when into has not moved since the base.
	if len(bases) > 0 && bases[0].Hash == intoCommit.Hash {
		return s.fastForward(into, fromCommit.Hash)
	}

	hash, err := s.mergeCommit(from, into, fromTree, toApply, fromCommit.Hash, intoCommit.Hash)
	if err != nil {
		return nil, err
	}
	return &quill.MergeResult{CommitID: hash.String()}, nil
}

func (s *GitStore) fastForward(into string, target plumbing.Hash) (*quill.MergeResult, error) {
	refName := plumbing.NewBranchReferenceName(into)
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, target)); err != nil {
		return nil, fmt.Errorf("advancing branch: %w", err)
	}

	// If into is checked out, bring the working tree up to the new head.
	head, err := s.repo.Head()
	if err == nil && head.Name() == refName {
		wt, err := s.repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("opening worktree: %w", err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{Branch: refName, Force: true}); err != nil {
			return nil, fmt.Errorf("updating worktree: %w", err)
		}
	}
	return &quill.MergeResult{CommitID: target.String()}, nil
}

// mergeCommit applies the from-side changes on top of into and commits
// with both parents. The working tree is temporarily switched to into
// and switched back afterwards.
func (s *GitStore) mergeCommit(from, into string, fromTree *object.Tree, changes []*object.Change, fromHash, intoHash plumbing.Hash) (plumbing.Hash, error) {
	head, err := s.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving head: %w", err)
	}
	original := head.Name().Short()

	if original != into {
		if err := s.Checkout(into); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening worktree: %w", err)
	}

	for _, change := range changes {
		path := changePath(change)
		action, err := change.Action()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("classifying change: %w", err)
		}
		if action == merkletrie.Delete {
			if _, err := wt.Remove(path); err != nil {
				return plumbing.ZeroHash, fmt.Errorf("removing %s: %w", path, err)
			}
			continue
		}

		file, err := fromTree.File(path)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("loading %s from source branch: %w", path, err)
		}
		contents, err := file.Contents()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("reading %s: %w", path, err)
		}
		full := filepath.Join(s.repoDir(), path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("creating parent directory: %w", err)
		}
		if err := os.WriteFile(full, []byte(contents), 0644); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("writing %s: %w", path, err)
		}
		if _, err := wt.Add(path); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("staging %s: %w", path, err)
		}
	}

	hash, err := s.commit(wt, fmt.Sprintf("Merge %s into %s", from, into), intoHash, fromHash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("committing merge: %w", err)
	}

	if original != into {
		if err := s.Checkout(original); err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return hash, nil
}

// History returns branch's commits, newest first.
func (s *GitStore) History(branch string) ([]quill.RevisionInfo, error) {
	commit, err := s.branchCommit(branch)
	if err != nil {
		return nil, err
	}
	return s.log(commit.Hash)
}

func (s *GitStore) log(from plumbing.Hash) ([]quill.RevisionInfo, error) {
	iter, err := s.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var revisions []quill.RevisionInfo
	err = iter.ForEach(func(c *object.Commit) error {
		revisions = append(revisions, quill.RevisionInfo{
			ID:        c.Hash.String(),
			Message:   strings.TrimSpace(c.Message),
			CreatedAt: c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return revisions, nil
}

// Restore checks out the content of a historical commit as a new
// commit on the current branch. History is never discarded.
func (s *GitStore) Restore(commitID string) (string, error) {
	target, err := s.resolveCommit(commitID)
	if err != nil {
		return "", err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("checking worktree status: %w", err)
	}
	if !status.IsClean() {
		return "", fmt.Errorf("restoring %s: %w", commitID, quill.ErrUncommittedChanges)
	}

	targetTree, err := target.Tree()
	if err != nil {
		return "", fmt.Errorf("loading tree: %w", err)
	}
	head, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving head: %w", err)
	}
	headCommit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("loading head commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("loading head tree: %w", err)
	}

	// Drop files that do not exist at the target revision.
	err = headTree.Files().ForEach(func(f *object.File) error {
		if _, err := targetTree.File(f.Name); err != nil {
			if _, rerr := wt.Remove(f.Name); rerr != nil {
				return fmt.Errorf("removing %s: %w", f.Name, rerr)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// Write the target revision's files.
	err = targetTree.Files().ForEach(func(f *object.File) error {
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		full := filepath.Join(s.repoDir(), f.Name)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("creating parent directory: %w", err)
		}
		if err := os.WriteFile(full, []byte(contents), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
		if _, err := wt.Add(f.Name); err != nil {
			return fmt.Errorf("staging %s: %w", f.Name, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	short := commitID
	if len(short) > 8 {
		short = short[:8]
	}
	hash, err := s.commit(wt, fmt.Sprintf("Restore %s", short))
	if err != nil {
		return "", fmt.Errorf("committing restore: %w", err)
	}
	return hash.String(), nil
}

// branchCommit resolves a branch slug to its head commit.
func (s *GitStore) branchCommit(slug string) (*object.Commit, error) {
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(slug), true)
	if err != nil {
		return nil, fmt.Errorf("branch %q: %w", slug, quill.ErrNotFound)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading commit for %q: %w", slug, err)
	}
	return commit, nil
}

// resolveCommit accepts a branch slug or a commit hash.
func (s *GitStore) resolveCommit(rev string) (*object.Commit, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("revision %q: %w", rev, quill.ErrNotFound)
	}
	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %q: %w", rev, err)
	}
	return commit, nil
}

// changePath returns the path a change applies to, preferring the
// post-change name.
func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}
