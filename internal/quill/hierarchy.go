package quill

import (
	"fmt"

	"quill-go/internal/model"
)

// CreateNode inserts an organizational node under parentID (nil for a
// root node). The new node never carries a store reference; stores are
// attached later when content arrives or via AttachNodeStore.
func (s *Service) CreateNode(parentID *string, kind, title, description string) (*model.Node, error) {
	if parentID != nil {
		parent, err := s.db.GetNode(*parentID)
		if err != nil {
			return nil, fmt.Errorf("loading parent node: %w", err)
		}
		if parent == nil {
			return nil, fmt.Errorf("parent node %s: %w", *parentID, ErrNotFound)
		}
		if err := s.checkNodeCanHoldChildren(parent); err != nil {
			return nil, err
		}
		depth, err := s.db.NodeDepth(*parentID)
		if err != nil {
			return nil, fmt.Errorf("computing depth: %w", err)
		}
		if depth+1 > MaxNestingDepth {
			return nil, fmt.Errorf("node would be at depth %d: %w", depth+1, ErrDepthExceeded)
		}
	}

	order, err := s.db.NextSiblingOrder(parentID)
	if err != nil {
		return nil, fmt.Errorf("computing sibling order: %w", err)
	}

	now := s.clock.Now()
	node := &model.Node{
		ID:          s.idgen.New(),
		ParentID:    parentID,
		Kind:        kind,
		Title:       title,
		Description: description,
		SortOrder:   order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateNode(node); err != nil {
		return nil, fmt.Errorf("creating node: %w", err)
	}

	s.logger.Info("node created", "id", node.ID, "title", title)
	return node, nil
}

// checkNodeCanHoldChildren enforces leaf protection from the container
// side: a node that owns a store or any content cannot gain child nodes.
func (s *Service) checkNodeCanHoldChildren(node *model.Node) error {
	if node.StoreRef != nil {
		return fmt.Errorf("node %q owns a version store: %w", node.Title, ErrLeafViolation)
	}
	count, err := s.db.CountContentsByNode(node.ID)
	if err != nil {
		return fmt.Errorf("counting contents: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("node %q holds content: %w", node.Title, ErrLeafViolation)
	}
	return nil
}

// GetNode returns a node by id.
func (s *Service) GetNode(id string) (*model.Node, error) {
	node, err := s.db.GetNode(id)
	if err != nil {
		return nil, fmt.Errorf("loading node: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return node, nil
}

// ListChildren returns the ordered children of parentID; nil lists the
// root nodes.
func (s *Service) ListChildren(parentID *string) ([]*model.Node, error) {
	nodes, err := s.db.ListChildren(parentID)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	return nodes, nil
}

// UpdateNode applies non-nil descriptive fields to a node.
func (s *Service) UpdateNode(id string, kind, title, description *string) (*model.Node, error) {
	node, err := s.GetNode(id)
	if err != nil {
		return nil, err
	}
	if kind != nil {
		node.Kind = *kind
	}
	if title != nil {
		node.Title = *title
	}
	if description != nil {
		node.Description = *description
	}
	node.UpdatedAt = s.clock.Now()
	if err := s.db.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("updating node: %w", err)
	}
	return node, nil
}

// MoveNode re-parents a node (nil makes it a root). The move is
// rejected if it would form a cycle, violate leaf protection on the new
// parent, or push any node of the moved subtree past the depth bound.
func (s *Service) MoveNode(id string, newParentID *string) error {
	subtree, err := s.db.GetSubtree(id, -1)
	if err != nil {
		return fmt.Errorf("loading subtree: %w", err)
	}
	if len(subtree) == 0 {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}

	if newParentID != nil {
		for _, n := range subtree {
			if n.ID == *newParentID {
				return fmt.Errorf("cannot move node %s under its own descendant %s", id, *newParentID)
			}
		}

		parent, err := s.db.GetNode(*newParentID)
		if err != nil {
			return fmt.Errorf("loading new parent: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("parent node %s: %w", *newParentID, ErrNotFound)
		}
		if err := s.checkNodeCanHoldChildren(parent); err != nil {
			return err
		}

		parentDepth, err := s.db.NodeDepth(*newParentID)
		if err != nil {
			return fmt.Errorf("computing depth: %w", err)
		}
		height := 0
		for _, n := range subtree {
			if n.Depth > height {
				height = n.Depth
			}
		}
		if parentDepth+1+height > MaxNestingDepth {
			return fmt.Errorf("subtree would reach depth %d: %w", parentDepth+1+height, ErrDepthExceeded)
		}
	}

	order, err := s.db.NextSiblingOrder(newParentID)
	if err != nil {
		return fmt.Errorf("computing sibling order: %w", err)
	}
	if err := s.db.SetNodeParent(id, newParentID, order); err != nil {
		return fmt.Errorf("moving node: %w", err)
	}

	s.logger.Info("node moved", "id", id)
	return nil
}

// ReorderChildren rewrites the order of parentID's children. The id
// list must be exactly the current child set or the order is left
// unchanged.
func (s *Service) ReorderChildren(parentID string, orderedIDs []string) error {
	if err := s.db.ReorderChildren(parentID, orderedIDs); err != nil {
		return fmt.Errorf("reordering children: %w", err)
	}
	s.logger.Debug("children reordered", "parent", parentID, "count", len(orderedIDs))
	return nil
}

// GetSubtree returns a node and its descendants in one query, ordered
// by depth then sibling order. maxDepth < 0 means unbounded.
func (s *Service) GetSubtree(id string, maxDepth int) ([]*SubtreeNode, error) {
	nodes, err := s.db.GetSubtree(id, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("loading subtree: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return nodes, nil
}

// DeleteResult reports what a cascading delete removed. Database
// deletion is authoritative; CleanupWarnings lists store directories
// whose best-effort removal failed and which need manual cleanup.
type DeleteResult struct {
	DeletedNodeIDs    []string
	DeletedContentIDs []string
	CleanupWarnings   []string
}

// DeleteNode removes a node and its entire subtree. Rows are deleted
// bottom-up in one transaction (owned contents, versions and snapshots
// cascade), then each deleted entity's on-disk store is removed
// best-effort.
func (s *Service) DeleteNode(id string) (*DeleteResult, error) {
	subtree, err := s.db.GetSubtree(id, -1)
	if err != nil {
		return nil, fmt.Errorf("loading subtree: %w", err)
	}
	if len(subtree) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}

	result := &DeleteResult{}
	var storeOwners []string

	// Visit bottom-up so children precede parents in the delete order.
	nodeIDs := make([]string, 0, len(subtree))
	for i := len(subtree) - 1; i >= 0; i-- {
		n := subtree[i]
		nodeIDs = append(nodeIDs, n.ID)
		if n.StoreRef != nil {
			storeOwners = append(storeOwners, n.ID)
		}
		contents, err := s.db.ListContentsByNode(n.ID)
		if err != nil {
			return nil, fmt.Errorf("listing contents of node %s: %w", n.ID, err)
		}
		for _, c := range contents {
			result.DeletedContentIDs = append(result.DeletedContentIDs, c.ID)
			if c.StoreRef != nil {
				storeOwners = append(storeOwners, c.ID)
			}
		}
	}

	if err := s.db.DeleteNodes(nodeIDs); err != nil {
		return nil, fmt.Errorf("deleting nodes: %w", err)
	}
	result.DeletedNodeIDs = nodeIDs

	for _, owner := range storeOwners {
		if err := s.stores.Remove(owner); err != nil {
			path := s.stores.Path(owner)
			s.logger.Warn("store cleanup failed", "path", path, "error", err)
			result.CleanupWarnings = append(result.CleanupWarnings, path)
		}
	}

	s.logger.Info("node deleted", "id", id,
		"nodes", len(result.DeletedNodeIDs), "contents", len(result.DeletedContentIDs))
	return result, nil
}
