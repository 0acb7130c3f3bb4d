package store

import (
	"fmt"
	"os"
	"path/filepath"

	"quill-go/internal/model"
	"quill-go/internal/quill"
)

// LinearStoreManager creates and opens linear version stores. The
// revision history itself lives in the database as snapshots; the
// per-owner directory holds only the metadata record.
type LinearStoreManager struct {
	root  string
	db    quill.Database
	clock quill.Clock
	idgen quill.IDGenerator
}

func NewLinearStoreManager(root string, db quill.Database, clock quill.Clock, idgen quill.IDGenerator) *LinearStoreManager {
	return &LinearStoreManager{root: root, db: db, clock: clock, idgen: idgen}
}

func (m *LinearStoreManager) Strategy() quill.Strategy { return quill.StrategyLinear }

func (m *LinearStoreManager) Path(ownerID string) string {
	return filepath.Join(m.root, ownerID)
}

func (m *LinearStoreManager) Create(ownerID string) (string, string, error) {
	dir := m.Path(ownerID)
	if _, err := os.Stat(dir); err == nil {
		return "", "", fmt.Errorf("store directory already exists: %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating store directory: %w", err)
	}

	meta := &Meta{
		ID:            ownerID,
		CreatedAt:     m.clock.Now(),
		SchemaVersion: metaSchemaVersion,
	}
	if err := writeMeta(dir, meta); err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}

	// The linear strategy has no branches; the active branch is empty.
	return ownerID, "", nil
}

func (m *LinearStoreManager) Open(ownerID string, ref string) (quill.VersionStore, error) {
	dir := m.Path(ownerID)
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		return nil, fmt.Errorf("%w: metadata record missing at %s; restore it or reinitialize the store",
			quill.ErrStoreCorrupted, dir)
	}
	return &LinearStore{db: m.db, contentID: ownerID, clock: m.clock, idgen: m.idgen}, nil
}

func (m *LinearStoreManager) Remove(ownerID string) error {
	return os.RemoveAll(m.Path(ownerID))
}

var _ quill.StoreManager = (*LinearStoreManager)(nil)

// LinearStore is one content's append-only revision history. Revisions
// are snapshots of the content's active version; switching the active
// version is a service-level operation and happens outside the store.
type LinearStore struct {
	db        quill.Database
	contentID string
	clock     quill.Clock
	idgen     quill.IDGenerator
}

var _ quill.VersionStore = (*LinearStore)(nil)

func (s *LinearStore) activeVersionID() (string, error) {
	content, err := s.db.GetContent(s.contentID)
	if err != nil {
		return "", fmt.Errorf("loading content: %w", err)
	}
	if content == nil {
		return "", fmt.Errorf("content %s: %w", s.contentID, quill.ErrNotFound)
	}
	if content.ActiveVersionID == nil {
		return "", fmt.Errorf("content %s has no active version: %w", s.contentID, quill.ErrStoreCorrupted)
	}
	return *content.ActiveVersionID, nil
}

// WriteRevision appends a snapshot to the content's active version and
// makes it the active snapshot. The name and message are not stored;
// snapshots are identified by position in time.
func (s *LinearStore) WriteRevision(name string, content []byte, message string) (string, error) {
	versionID, err := s.activeVersionID()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	snap := &model.Snapshot{
		ID:        s.idgen.New(),
		VersionID: versionID,
		Body:      string(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateSnapshotActivate(snap, s.contentID); err != nil {
		return "", fmt.Errorf("appending snapshot: %w", err)
	}
	return snap.ID, nil
}

// ListRevisions returns the active version's snapshots, newest first.
func (s *LinearStore) ListRevisions() ([]quill.RevisionInfo, error) {
	versionID, err := s.activeVersionID()
	if err != nil {
		return nil, err
	}
	snapshots, err := s.db.ListSnapshots(versionID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	revisions := make([]quill.RevisionInfo, 0, len(snapshots))
	for _, snap := range snapshots {
		revisions = append(revisions, quill.RevisionInfo{
			ID:        snap.ID,
			CreatedAt: snap.CreatedAt,
		})
	}
	return revisions, nil
}

// ReadRevision returns a snapshot's body. An empty id reads the
// content's active snapshot. The name is ignored; a linear store holds
// exactly one document.
func (s *LinearStore) ReadRevision(id string, name string) ([]byte, error) {
	if id == "" {
		content, err := s.db.GetContent(s.contentID)
		if err != nil {
			return nil, fmt.Errorf("loading content: %w", err)
		}
		if content == nil {
			return nil, fmt.Errorf("content %s: %w", s.contentID, quill.ErrNotFound)
		}
		if content.ActiveSnapshotID == nil {
			return nil, fmt.Errorf("content %s has no active snapshot: %w", s.contentID, quill.ErrStoreCorrupted)
		}
		id = *content.ActiveSnapshotID
	}

	snap, err := s.db.GetSnapshot(id)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, quill.ErrNotFound)
	}
	return []byte(snap.Body), nil
}

// SwitchActive makes snapshot id the content's active snapshot.
func (s *LinearStore) SwitchActive(id string) error {
	snap, err := s.db.GetSnapshot(id)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("snapshot %s: %w", id, quill.ErrNotFound)
	}
	if err := s.db.ActivateSnapshot(s.contentID, id); err != nil {
		return fmt.Errorf("activating snapshot: %w", err)
	}
	return nil
}
