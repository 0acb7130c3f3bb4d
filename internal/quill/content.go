package quill

import (
	"fmt"

	"quill-go/internal/model"
)

// DefaultVersionName is the name of the version created with a content
// under the linear strategy.
const DefaultVersionName = "Original"

// CreateContent inserts a content entity and attaches its revision
// storage. Exactly one of nodeID and scopeID must be set: node-owned
// contents live under a leaf node, standalone contents belong directly
// to a project scope.
//
// Store ownership follows the strategy. Under branching, a node-owned
// content shares its node's store (created here on first content) and
// a standalone content owns its own; under linear, every content owns
// its version chain regardless of nesting. Any partial failure rolls
// the whole creation back.
func (s *Service) CreateContent(nodeID, scopeID *string, title, description, initialBody string) (*model.Content, error) {
	if (nodeID == nil) == (scopeID == nil) {
		return nil, fmt.Errorf("content must have exactly one owner: a node or a scope")
	}

	var node *model.Node
	if nodeID != nil {
		var err error
		node, err = s.GetNode(*nodeID)
		if err != nil {
			return nil, err
		}
		children, err := s.db.CountChildren(node.ID)
		if err != nil {
			return nil, fmt.Errorf("counting children: %w", err)
		}
		if children > 0 {
			return nil, fmt.Errorf("node %q has child nodes: %w", node.Title, ErrLeafViolation)
		}
	}

	order, err := s.nextContentOrder(nodeID, scopeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	content := &model.Content{
		ID:          s.idgen.New(),
		NodeID:      nodeID,
		ScopeID:     scopeID,
		Title:       title,
		Description: description,
		SortOrder:   order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Step 1: the row, with no store reference yet.
	if err := s.db.CreateContent(content); err != nil {
		return nil, fmt.Errorf("creating content: %w", err)
	}
	rollbackRow := func() error { return s.db.DeleteContent(content.ID) }

	switch s.stores.Strategy() {
	case StrategyLinear:
		if err := s.createLinearContent(content, initialBody, rollbackRow); err != nil {
			return nil, err
		}
	case StrategyBranching:
		if node != nil {
			if err := s.createNodeOwnedContent(content, node, initialBody, rollbackRow); err != nil {
				return nil, err
			}
		} else {
			if err := s.createStandaloneContent(content, initialBody, rollbackRow); err != nil {
				return nil, err
			}
		}
	default:
		err := fmt.Errorf("unknown store strategy: %s", s.stores.Strategy())
		return nil, s.compensate(err, nil, rollbackRow)
	}

	s.logger.Info("content created", "id", content.ID, "title", title)
	reloaded, err := s.db.GetContent(content.ID)
	if err != nil || reloaded == nil {
		return content, nil
	}
	return reloaded, nil
}

// createLinearContent attaches the content's own store directory and
// seeds the default version with an initial snapshot.
func (s *Service) createLinearContent(content *model.Content, initialBody string, rollbackRow func() error) error {
	ref, _, err := s.attachOwnedStore(content.ID, func(ref, branch string) error {
		return s.db.SetContentStore(content.ID, &ref, branchRef(branch))
	}, rollbackRow)
	if err != nil {
		return err
	}
	content.StoreRef = &ref

	now := s.clock.Now()
	version := &model.Version{
		ID:        s.idgen.New(),
		ContentID: content.ID,
		Name:      DefaultVersionName,
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
		err = fmt.Errorf("seeding initial version: %w", err)
		return s.compensate(err, func() error { return s.stores.Remove(content.ID) }, rollbackRow)
	}
	return nil
}

// createNodeOwnedContent attaches the owning node's store if it has
// none yet and commits the content's initial body into it.
func (s *Service) createNodeOwnedContent(content *model.Content, node *model.Node, initialBody string, rollbackRow func() error) error {
	if node.StoreRef == nil {
		ref, branch, err := s.attachOwnedStore(node.ID, func(ref, branch string) error {
			return s.db.SetNodeStore(node.ID, &ref, branchRef(branch))
		}, rollbackRow)
		if err != nil {
			return err
		}
		node.StoreRef = &ref
		node.ActiveBranch = branchRef(branch)
	}

	store, err := s.stores.Open(node.ID, *node.StoreRef)
	if err != nil {
		err = fmt.Errorf("opening node store: %w", err)
		return s.compensate(err, nil, rollbackRow)
	}
	if _, err := store.WriteRevision(contentFile(content.ID), []byte(initialBody), "Add "+content.Title); err != nil {
		err = fmt.Errorf("committing initial content: %w", err)
		return s.compensate(err, nil, rollbackRow)
	}
	return nil
}

// createStandaloneContent attaches the content's own branching store
// and commits the initial body.
func (s *Service) createStandaloneContent(content *model.Content, initialBody string, rollbackRow func() error) error {
	removeStore := func() error { return s.stores.Remove(content.ID) }

	ref, branch, err := s.attachOwnedStore(content.ID, func(ref, branch string) error {
		return s.db.SetContentStore(content.ID, &ref, branchRef(branch))
	}, rollbackRow)
	if err != nil {
		return err
	}
	content.StoreRef = &ref
	content.ActiveBranch = branchRef(branch)

	store, err := s.stores.Open(content.ID, ref)
	if err != nil {
		err = fmt.Errorf("opening store: %w", err)
		return s.compensate(err, removeStore, rollbackRow)
	}
	if _, err := store.WriteRevision(contentFile(content.ID), []byte(initialBody), "Add "+content.Title); err != nil {
		err = fmt.Errorf("committing initial content: %w", err)
		return s.compensate(err, removeStore, rollbackRow)
	}
	return nil
}

func (s *Service) nextContentOrder(nodeID, scopeID *string) (int64, error) {
	var siblings []*model.Content
	var err error
	if nodeID != nil {
		siblings, err = s.db.ListContentsByNode(*nodeID)
	} else {
		siblings, err = s.db.ListStandaloneContents(*scopeID)
	}
	if err != nil {
		return 0, fmt.Errorf("listing sibling contents: %w", err)
	}
	return int64(len(siblings)), nil
}

// GetContent returns a content by id.
func (s *Service) GetContent(id string) (*model.Content, error) {
	c, err := s.db.GetContent(id)
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// ListContentsByNode returns the ordered contents owned by a node.
func (s *Service) ListContentsByNode(nodeID string) ([]*model.Content, error) {
	contents, err := s.db.ListContentsByNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing contents: %w", err)
	}
	return contents, nil
}

// ListStandaloneContents returns the ordered standalone contents of a
// scope.
func (s *Service) ListStandaloneContents(scopeID string) ([]*model.Content, error) {
	contents, err := s.db.ListStandaloneContents(scopeID)
	if err != nil {
		return nil, fmt.Errorf("listing standalone contents: %w", err)
	}
	return contents, nil
}

// ReorderContents rewrites the order of a node's contents (scopeID
// nil) or a scope's standalone contents (nodeID nil). The id list must
// be exactly the current sibling set or the order is left unchanged.
func (s *Service) ReorderContents(nodeID, scopeID *string, orderedIDs []string) error {
	if (nodeID == nil) == (scopeID == nil) {
		return fmt.Errorf("reorder must target exactly one owner: a node or a scope")
	}
	if err := s.db.ReorderContents(nodeID, scopeID, orderedIDs); err != nil {
		return fmt.Errorf("reordering contents: %w", err)
	}
	s.logger.Debug("contents reordered", "count", len(orderedIDs))
	return nil
}

// UpdateContent applies non-nil descriptive fields to a content.
func (s *Service) UpdateContent(id string, title, description *string) (*model.Content, error) {
	c, err := s.GetContent(id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		c.Title = *title
	}
	if description != nil {
		c.Description = *description
	}
	c.UpdatedAt = s.clock.Now()
	if err := s.db.UpdateContent(c); err != nil {
		return nil, fmt.Errorf("updating content: %w", err)
	}
	return c, nil
}

// DeleteContent removes a content row (its versions and snapshots
// cascade) and best-effort cleans up its revision storage: the
// content's own store directory if it owns one, otherwise its file in
// the owning node's store. Returns paths needing manual cleanup.
func (s *Service) DeleteContent(id string) ([]string, error) {
	c, err := s.GetContent(id)
	if err != nil {
		return nil, err
	}

	if err := s.db.DeleteContent(id); err != nil {
		return nil, fmt.Errorf("deleting content: %w", err)
	}

	var warnings []string
	if c.StoreRef != nil {
		if err := s.stores.Remove(c.ID); err != nil {
			path := s.stores.Path(c.ID)
			s.logger.Warn("store cleanup failed", "path", path, "error", err)
			warnings = append(warnings, path)
		}
	} else if c.NodeID != nil && s.stores.Strategy() == StrategyBranching {
		if err := s.removeContentFromNodeStore(c); err != nil {
			path := s.stores.Path(*c.NodeID)
			s.logger.Warn("content file cleanup failed", "path", path, "error", err)
			warnings = append(warnings, path)
		}
	}

	s.logger.Info("content deleted", "id", id)
	return warnings, nil
}

func (s *Service) removeContentFromNodeStore(c *model.Content) error {
	node, err := s.db.GetNode(*c.NodeID)
	if err != nil || node == nil || node.StoreRef == nil {
		return err
	}
	store, err := s.stores.Open(node.ID, *node.StoreRef)
	if err != nil {
		return err
	}
	bs, ok := store.(BranchStore)
	if !ok {
		return nil
	}
	_, err = bs.RemovePath(contentFile(c.ID), "Remove "+c.Title)
	return err
}

// SaveContent persists an autosave of the content's current text:
// an in-place update of the active snapshot under the linear strategy,
// a commit in the owning store under branching. Explicit checkpoints
// go through CreateSnapshot or CommitContent instead.
func (s *Service) SaveContent(id string, body string) error {
	c, err := s.GetContent(id)
	if err != nil {
		return err
	}

	if s.stores.Strategy() == StrategyLinear {
		if c.ActiveSnapshotID == nil {
			return fmt.Errorf("content %q has no active snapshot: %w", c.Title, ErrNotFound)
		}
		if err := s.db.UpdateSnapshotBody(*c.ActiveSnapshotID, body, s.clock.Now()); err != nil {
			return fmt.Errorf("updating active snapshot: %w", err)
		}
		s.logger.Debug("content saved", "id", id)
		return nil
	}

	store, err := s.openContentStore(c)
	if err != nil {
		return err
	}
	if _, err := store.WriteRevision(contentFile(c.ID), []byte(body), "Autosave "+c.Title); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	s.logger.Debug("content saved", "id", id)
	return nil
}

// ReadContent returns the content's current text.
func (s *Service) ReadContent(id string) (string, error) {
	c, err := s.GetContent(id)
	if err != nil {
		return "", err
	}

	if s.stores.Strategy() == StrategyLinear {
		if c.ActiveSnapshotID == nil {
			return "", nil
		}
		snap, err := s.db.GetSnapshot(*c.ActiveSnapshotID)
		if err != nil {
			return "", fmt.Errorf("loading active snapshot: %w", err)
		}
		if snap == nil {
			return "", fmt.Errorf("active snapshot %s: %w", *c.ActiveSnapshotID, ErrNotFound)
		}
		return snap.Body, nil
	}

	store, err := s.openContentStore(c)
	if err != nil {
		return "", err
	}
	data, err := store.ReadRevision("", contentFile(c.ID))
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return string(data), nil
}
