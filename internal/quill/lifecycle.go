package quill

import (
	"errors"
	"fmt"

	"quill-go/internal/model"
)

// The attach protocol: a row is inserted first with no store
// reference, the store is initialized second, and the reference is
// written third. Each step rolls back all prior steps on failure, so
// an entity either fully owns a store or leaves no trace. Store
// initialization never runs inside an open database transaction.
//
// Detachment is the inverse with relaxed semantics: the reference (or
// the row) goes first and the directory removal is best-effort; an
// orphaned directory is preferable to ambiguous ownership.

// attachOwnedStore runs steps 2 and 3 for ownerID. setRef persists the
// reference (step 3); rollbackRow undoes step 1 and may be nil when the
// row pre-existed. When compensation itself fails, both errors are
// escalated together.
func (s *Service) attachOwnedStore(ownerID string, setRef func(ref, branch string) error, rollbackRow func() error) (string, string, error) {
	ref, branch, err := s.stores.Create(ownerID)
	if err != nil {
		err = fmt.Errorf("initializing store: %w", err)
		return "", "", s.compensate(err, nil, rollbackRow)
	}

	if err := setRef(ref, branch); err != nil {
		err = fmt.Errorf("persisting store reference: %w", err)
		return "", "", s.compensate(err, func() error { return s.stores.Remove(ownerID) }, rollbackRow)
	}

	return ref, branch, nil
}

// compensate runs the given compensating actions for err, joining any
// compensation failures into the returned error.
func (s *Service) compensate(err error, removeStore, rollbackRow func() error) error {
	errs := []error{err}
	if removeStore != nil {
		if rerr := removeStore(); rerr != nil {
			errs = append(errs, fmt.Errorf("compensating store removal failed: %w", rerr))
		}
	}
	if rollbackRow != nil {
		if rerr := rollbackRow(); rerr != nil {
			errs = append(errs, fmt.Errorf("compensating row delete failed: %w", rerr))
		}
	}
	if len(errs) > 1 {
		s.logger.Error("compensation incomplete", "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// AttachNodeStore explicitly attaches a version store to a leaf node
// that owns none. A node that lost all its children or content stays
// inert until this is called.
func (s *Service) AttachNodeStore(nodeID string) error {
	node, err := s.GetNode(nodeID)
	if err != nil {
		return err
	}
	if node.StoreRef != nil {
		return fmt.Errorf("node %q already owns a store: %w", node.Title, ErrLeafViolation)
	}
	children, err := s.db.CountChildren(nodeID)
	if err != nil {
		return fmt.Errorf("counting children: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("node %q has child nodes: %w", node.Title, ErrLeafViolation)
	}

	_, _, err = s.attachOwnedStore(nodeID, func(ref, branch string) error {
		return s.db.SetNodeStore(nodeID, &ref, branchRef(branch))
	}, nil)
	if err != nil {
		return err
	}

	s.logger.Info("store attached", "node", nodeID)
	return nil
}

// DetachNodeStore clears a node's store reference and best-effort
// removes the directory. Returns the paths needing manual cleanup, if
// any.
func (s *Service) DetachNodeStore(nodeID string) ([]string, error) {
	node, err := s.GetNode(nodeID)
	if err != nil {
		return nil, err
	}
	if node.StoreRef == nil {
		return nil, fmt.Errorf("node %q owns no store: %w", node.Title, ErrNotFound)
	}

	if err := s.db.SetNodeStore(nodeID, nil, nil); err != nil {
		return nil, fmt.Errorf("clearing store reference: %w", err)
	}

	var warnings []string
	if err := s.stores.Remove(nodeID); err != nil {
		path := s.stores.Path(nodeID)
		s.logger.Warn("store cleanup failed", "path", path, "error", err)
		warnings = append(warnings, path)
	}

	s.logger.Info("store detached", "node", nodeID)
	return warnings, nil
}

// openContentStore resolves the version store holding a content's
// revisions: the content's own store when it is standalone or under
// the linear strategy, the owning node's store otherwise.
func (s *Service) openContentStore(c *model.Content) (VersionStore, error) {
	if s.stores.Strategy() == StrategyLinear || c.NodeID == nil {
		if c.StoreRef == nil {
			return nil, fmt.Errorf("content %q owns no store: %w", c.Title, ErrNotFound)
		}
		return s.stores.Open(c.ID, *c.StoreRef)
	}

	node, err := s.GetNode(*c.NodeID)
	if err != nil {
		return nil, err
	}
	if node.StoreRef == nil {
		return nil, fmt.Errorf("node %q owns no store: %w", node.Title, ErrNotFound)
	}
	return s.stores.Open(node.ID, *node.StoreRef)
}

// branchRef returns a pointer to branch, or nil for the linear
// strategy's empty branch.
func branchRef(branch string) *string {
	if branch == "" {
		return nil
	}
	return &branch
}
