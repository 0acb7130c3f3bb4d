package quill

import (
	"time"

	"quill-go/internal/model"
)

// SubtreeNode is a node annotated with its depth relative to the
// subtree root (root = 0).
type SubtreeNode struct {
	model.Node
	Depth int
}

// Database provides an interface for metadata storage operations.
// Find-style methods return (nil, nil) when the entity does not exist;
// multi-statement methods run in a single transaction.
type Database interface {
	// Node operations

	// CreateNode inserts a node row. The store reference is never set
	// at insert time; attachment is a separate step.
	CreateNode(n *model.Node) error

	// GetNode returns a node by id, or nil if it does not exist.
	GetNode(id string) (*model.Node, error)

	// ListChildren returns the child nodes of parentID ordered by
	// sort_order. A nil parentID lists root nodes.
	ListChildren(parentID *string) ([]*model.Node, error)

	// UpdateNode persists the node's descriptive fields
	// (kind, title, description, updated_at).
	UpdateNode(n *model.Node) error

	// SetNodeParent re-parents a node and assigns its position among
	// the new siblings.
	SetNodeParent(id string, parentID *string, sortOrder int64) error

	// SetNodeStore updates the node's store reference and active
	// branch. Passing nils clears them.
	SetNodeStore(id string, storeRef *string, activeBranch *string) error

	// SetNodeActiveBranch records the node's current branch.
	SetNodeActiveBranch(id string, branch string) error

	// DeleteNodes deletes the given node rows in order within one
	// transaction. Owned contents (and their versions and snapshots)
	// go with them via cascade.
	DeleteNodes(ids []string) error

	// CountChildren returns the number of child nodes of id.
	CountChildren(id string) (int64, error)

	// NextSiblingOrder returns the sort_order for a new node appended
	// under parentID.
	NextSiblingOrder(parentID *string) (int64, error)

	// ReorderChildren atomically rewrites the sort_order of parentID's
	// children to match orderedIDs. Fails without changes unless
	// orderedIDs is exactly the current child set.
	ReorderChildren(parentID string, orderedIDs []string) error

	// GetSubtree returns rootID and its descendants in a single query,
	// ordered by depth then sort_order. maxDepth bounds the walk;
	// maxDepth < 0 means unbounded.
	GetSubtree(rootID string, maxDepth int) ([]*SubtreeNode, error)

	// NodeDepth returns the node's depth counted from its root
	// (a root node has depth 1).
	NodeDepth(id string) (int, error)

	// Content operations

	CreateContent(c *model.Content) error

	// GetContent returns a content by id, or nil if it does not exist.
	GetContent(id string) (*model.Content, error)

	// ListContentsByNode returns the contents owned by a node, ordered
	// by sort_order.
	ListContentsByNode(nodeID string) ([]*model.Content, error)

	// ListStandaloneContents returns contents not owned by any node
	// within the given scope, ordered by sort_order.
	ListStandaloneContents(scopeID string) ([]*model.Content, error)

	// ReorderContents atomically rewrites the sort_order of the sibling
	// contents of a node (scopeID nil) or a scope's standalone contents
	// (nodeID nil). The id list must match the current sibling set
	// exactly; otherwise nothing changes.
	ReorderContents(nodeID *string, scopeID *string, orderedIDs []string) error

	// UpdateContent persists the content's descriptive fields.
	UpdateContent(c *model.Content) error

	// SetContentStore updates the content's store reference and active
	// branch. Passing nils clears them.
	SetContentStore(id string, storeRef *string, activeBranch *string) error

	// SetContentActiveBranch records the content's current branch.
	SetContentActiveBranch(id string, branch string) error

	// DeleteContent deletes a content row; versions and snapshots go
	// with it via cascade.
	DeleteContent(id string) error

	// CountContentsByNode returns the number of contents owned by a node.
	CountContentsByNode(nodeID string) (int64, error)

	// Version and snapshot operations (linear strategy)

	// CreateVersionWithSnapshot inserts a version and its initial
	// snapshot and makes both active on the owning content, in one
	// transaction.
	CreateVersionWithSnapshot(v *model.Version, snap *model.Snapshot) error

	// GetVersion returns a version by id, or nil if it does not exist.
	GetVersion(id string) (*model.Version, error)

	// FindVersionByName returns the content's version with the given
	// name, or nil.
	FindVersionByName(contentID string, name string) (*model.Version, error)

	// ListVersions returns a content's versions ordered by creation
	// time, oldest first.
	ListVersions(contentID string) ([]*model.Version, error)

	// ListAllVersions returns every version row. Used by the retention
	// maintenance pass.
	ListAllVersions() ([]*model.Version, error)

	// UpdateVersion persists the version's name and updated_at.
	UpdateVersion(v *model.Version) error

	// CountVersions returns the number of versions a content has.
	CountVersions(contentID string) (int64, error)

	// DeleteVersion deletes a non-active version; its snapshots go via
	// cascade.
	DeleteVersion(id string) error

	// DeleteVersionSwitchActive deletes a version and, in the same
	// transaction, activates nextVersionID on the content. If the next
	// version has no snapshots, sentinel is inserted and becomes the
	// active snapshot.
	DeleteVersionSwitchActive(contentID, versionID, nextVersionID string, sentinel *model.Snapshot) error

	// ActivateVersion makes versionID the content's active version and
	// its newest snapshot the active snapshot. If the version has no
	// snapshots, sentinel is inserted and activated instead. Returns
	// the id of the snapshot that became active.
	ActivateVersion(contentID, versionID string, sentinel *model.Snapshot) (string, error)

	// ActivateSnapshot makes snapshotID (and its version) active on the
	// content.
	ActivateSnapshot(contentID, snapshotID string) error

	// CreateSnapshotActivate appends a snapshot and makes it (and its
	// version) active on the content, in one transaction.
	CreateSnapshotActivate(s *model.Snapshot, contentID string) error

	// GetSnapshot returns a snapshot by id, or nil if it does not exist.
	GetSnapshot(id string) (*model.Snapshot, error)

	// ListSnapshots returns a version's snapshots, newest first.
	ListSnapshots(versionID string) ([]*model.Snapshot, error)

	// UpdateSnapshotBody mutates a snapshot's body in place.
	UpdateSnapshotBody(id string, body string, updatedAt time.Time) error

	// EvictSnapshots deletes the oldest snapshots of a version beyond
	// the newest keepCount, reassigning the content's active snapshot
	// to the newest retained one first if it would otherwise be
	// evicted. Returns the number deleted. Idempotent.
	EvictSnapshots(versionID string, keepCount int) (int, error)

	// Close closes the database connection.
	Close() error
}
