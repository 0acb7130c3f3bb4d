package model

import "time"

// Node is an organizational container in the project tree.
// A node either has child nodes or carries content/a version store,
// never both.
type Node struct {
	ID           string  // UUID
	ParentID     *string // nil for root nodes
	Kind         string  // Label only ("project", "part", "chapter", ...); no behavioral effect
	Title        string
	Description  string
	SortOrder    int64   // Position among siblings
	StoreRef     *string // Reference to the owned version store, leaves only
	ActiveBranch *string // Current branch, branching strategy only
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Content is a content-bearing leaf entity. It belongs to a Node
// (NodeID set) or is standalone (NodeID nil, ScopeID identifies the
// project it belongs to).
type Content struct {
	ID               string
	NodeID           *string
	ScopeID          *string // Standalone contents only
	Title            string
	Description      string
	SortOrder        int64
	StoreRef         *string // Standalone contents under the branching strategy
	ActiveBranch     *string
	ActiveVersionID  *string // Linear strategy
	ActiveSnapshotID *string // Linear strategy
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Version is a named line of history for a Content under the linear
// strategy. Exactly one version per content is active at a time.
type Version struct {
	ID        string
	ContentID string
	Name      string // Unique per content
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is one revision of a version's text under the linear
// strategy. Rows are append-only except for in-place autosave updates
// to the active snapshot.
type Snapshot struct {
	ID        string
	VersionID string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
