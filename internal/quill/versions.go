package quill

import (
	"fmt"

	"quill-go/internal/model"
)

// requireLinear guards operations that only exist under the linear
// snapshot strategy.
func (s *Service) requireLinear() error {
	if s.stores.Strategy() != StrategyLinear {
		return fmt.Errorf("operation requires the linear store strategy (active: %s)", s.stores.Strategy())
	}
	return nil
}

// CreateVersion starts a new named line of history for a content,
// seeds it with an initial snapshot, and makes it active. Fails with
// ErrDuplicateName if the content already has a version of that name.
func (s *Service) CreateVersion(contentID, name, initialBody string) (*model.Version, error) {
	if err := s.requireLinear(); err != nil {
		return nil, err
	}
	if _, err := s.GetContent(contentID); err != nil {
		return nil, err
	}

	existing, err := s.db.FindVersionByName(contentID, name)
	if err != nil {
		return nil, fmt.Errorf("checking version name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("version %q: %w", name, ErrDuplicateName)
	}

	now := s.clock.Now()
	version := &model.Version{
		ID:        s.idgen.New(),
		ContentID: contentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	snap := &model.Snapshot{
		ID:        s.idgen.New(),
		VersionID: version.ID,
		Body:      initialBody,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateVersionWithSnapshot(version, snap); err != nil {
		return nil, fmt.Errorf("creating version: %w", err)
	}

	s.logger.Info("version created", "content", contentID, "name", name)
	return version, nil
}

// ListVersions returns a content's versions, oldest first.
func (s *Service) ListVersions(contentID string) ([]*model.Version, error) {
	if err := s.requireLinear(); err != nil {
		return nil, err
	}
	versions, err := s.db.ListVersions(contentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	return versions, nil
}

// RenameVersion changes a version's name, rejecting collisions within
// the owning content.
func (s *Service) RenameVersion(id, name string) error {
	if err := s.requireLinear(); err != nil {
		return err
	}
	version, err := s.getVersion(id)
	if err != nil {
		return err
	}

	existing, err := s.db.FindVersionByName(version.ContentID, name)
	if err != nil {
		return fmt.Errorf("checking version name: %w", err)
	}
	if existing != nil && existing.ID != id {
		return fmt.Errorf("version %q: %w", name, ErrDuplicateName)
	}

	version.Name = name
	version.UpdatedAt = s.clock.Now()
	if err := s.db.UpdateVersion(version); err != nil {
		return fmt.Errorf("renaming version: %w", err)
	}
	return nil
}

// SwitchVersion makes the given version active on its content. The
// version's newest snapshot becomes active; a version with zero
// snapshots gets an empty sentinel snapshot rather than an error.
func (s *Service) SwitchVersion(id string) error {
	if err := s.requireLinear(); err != nil {
		return err
	}
	version, err := s.getVersion(id)
	if err != nil {
		return err
	}

	if _, err := s.db.ActivateVersion(version.ContentID, version.ID, s.sentinelSnapshot(version.ID)); err != nil {
		return fmt.Errorf("switching version: %w", err)
	}

	s.logger.Info("version switched", "content", version.ContentID, "version", id)
	return nil
}

// DeleteVersion removes a version and its snapshots. The sole
// remaining version of a content cannot be deleted (ErrLastItem).
// Deleting the active version switches the content to its most
// recently created remaining version.
func (s *Service) DeleteVersion(id string) error {
	if err := s.requireLinear(); err != nil {
		return err
	}
	version, err := s.getVersion(id)
	if err != nil {
		return err
	}

	count, err := s.db.CountVersions(version.ContentID)
	if err != nil {
		return fmt.Errorf("counting versions: %w", err)
	}
	if count <= 1 {
		return fmt.Errorf("version %q is the only one: %w", version.Name, ErrLastItem)
	}

	content, err := s.GetContent(version.ContentID)
	if err != nil {
		return err
	}

	if content.ActiveVersionID == nil || *content.ActiveVersionID != id {
		if err := s.db.DeleteVersion(id); err != nil {
			return fmt.Errorf("deleting version: %w", err)
		}
		s.logger.Info("version deleted", "version", id)
		return nil
	}

	// Deleting the active version: switch to the most recently created
	// survivor in the same transaction.
	versions, err := s.db.ListVersions(version.ContentID)
	if err != nil {
		return fmt.Errorf("listing versions: %w", err)
	}
	var next *model.Version
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].ID != id {
			next = versions[i]
			break
		}
	}
	if next == nil {
		return fmt.Errorf("version %q is the only one: %w", version.Name, ErrLastItem)
	}

	if err := s.db.DeleteVersionSwitchActive(version.ContentID, id, next.ID, s.sentinelSnapshot(next.ID)); err != nil {
		return fmt.Errorf("deleting active version: %w", err)
	}
	s.logger.Info("version deleted", "version", id, "switched_to", next.ID)
	return nil
}

// CreateSnapshot appends an explicit checkpoint to a version, makes it
// active, and prunes the version's history per the retention policy.
func (s *Service) CreateSnapshot(versionID, body string) (*model.Snapshot, error) {
	if err := s.requireLinear(); err != nil {
		return nil, err
	}
	version, err := s.getVersion(versionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snap := &model.Snapshot{
		ID:        s.idgen.New(),
		VersionID: versionID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateSnapshotActivate(snap, version.ContentID); err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}

	evicted, err := s.db.EvictSnapshots(versionID, s.keepCount)
	if err != nil {
		return nil, fmt.Errorf("pruning snapshots: %w", err)
	}
	if evicted > 0 {
		s.logger.Debug("snapshots evicted", "version", versionID, "count", evicted)
	}

	return snap, nil
}

// SwitchSnapshot makes the given snapshot (and its version) active on
// the owning content.
func (s *Service) SwitchSnapshot(id string) error {
	if err := s.requireLinear(); err != nil {
		return err
	}
	snap, err := s.db.GetSnapshot(id)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	version, err := s.getVersion(snap.VersionID)
	if err != nil {
		return err
	}
	if err := s.db.ActivateSnapshot(version.ContentID, id); err != nil {
		return fmt.Errorf("switching snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns a version's snapshots, newest first.
func (s *Service) ListSnapshots(versionID string) ([]*model.Snapshot, error) {
	if err := s.requireLinear(); err != nil {
		return nil, err
	}
	snaps, err := s.db.ListSnapshots(versionID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snaps, nil
}

func (s *Service) getVersion(id string) (*model.Version, error) {
	version, err := s.db.GetVersion(id)
	if err != nil {
		return nil, fmt.Errorf("loading version: %w", err)
	}
	if version == nil {
		return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	return version, nil
}

// sentinelSnapshot prepares the empty snapshot activated when a
// version with no snapshots becomes active.
func (s *Service) sentinelSnapshot(versionID string) *model.Snapshot {
	now := s.clock.Now()
	return &model.Snapshot{
		ID:        s.idgen.New(),
		VersionID: versionID,
		Body:      "",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
