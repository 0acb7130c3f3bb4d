package database

// Schema is the full current schema, equivalent to running every
// migration in migrations/files. Keep in sync when adding migrations;
// tests apply it directly to in-memory databases.
const Schema = `
CREATE TABLE nodes (
    id TEXT PRIMARY KEY,
    parent_id TEXT REFERENCES nodes(id) ON DELETE CASCADE,
    kind TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    store_ref TEXT,
    active_branch TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_nodes_parent_id ON nodes(parent_id);
CREATE TABLE contents (
    id TEXT PRIMARY KEY,
    node_id TEXT REFERENCES nodes(id) ON DELETE CASCADE,
    scope_id TEXT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    store_ref TEXT,
    active_branch TEXT,
    active_version_id TEXT,
    active_snapshot_id TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_contents_node_id ON contents(node_id);
CREATE INDEX idx_contents_scope_id ON contents(scope_id);
CREATE TABLE versions (
    id TEXT PRIMARY KEY,
    content_id TEXT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (content_id, name)
);
CREATE TABLE snapshots (
    id TEXT PRIMARY KEY,
    version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
    body TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_snapshots_version_id ON snapshots(version_id);
CREATE INDEX idx_snapshots_version_created ON snapshots(version_id, created_at);
`
