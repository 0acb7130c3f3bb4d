package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"quill-go/internal/database/migrations"
	"quill-go/internal/model"
	"quill-go/internal/quill"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the quill.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. Exported for tools and tests that need a
// properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Cascading deletes on contents/versions/snapshots rely on this;
	// SQLite keeps it OFF by default for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

const nodeColumns = "id, parent_id, kind, title, description, sort_order, store_ref, active_branch, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(r rowScanner) (*model.Node, error) {
	var n model.Node
	var parentID, storeRef, activeBranch sql.NullString
	err := r.Scan(&n.ID, &parentID, &n.Kind, &n.Title, &n.Description, &n.SortOrder,
		&storeRef, &activeBranch, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.ParentID = nullableString(parentID)
	n.StoreRef = nullableString(storeRef)
	n.ActiveBranch = nullableString(activeBranch)
	return &n, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// Node operations

func (s *SQLiteDatabase) CreateNode(n *model.Node) error {
	_, err := s.db.Exec(
		"INSERT INTO nodes (id, parent_id, kind, title, description, sort_order, store_ref, active_branch, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, nullString(n.ParentID), n.Kind, n.Title, n.Description, n.SortOrder,
		nullString(n.StoreRef), nullString(n.ActiveBranch), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetNode(id string) (*model.Node, error) {
	row := s.db.QueryRow("SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding node: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) ListChildren(parentID *string) ([]*model.Node, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = s.db.Query("SELECT " + nodeColumns + " FROM nodes WHERE parent_id IS NULL ORDER BY sort_order, rowid")
	} else {
		rows, err = s.db.Query("SELECT "+nodeColumns+" FROM nodes WHERE parent_id = ? ORDER BY sort_order, rowid", *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteDatabase) UpdateNode(n *model.Node) error {
	_, err := s.db.Exec(
		"UPDATE nodes SET kind = ?, title = ?, description = ?, updated_at = ? WHERE id = ?",
		n.Kind, n.Title, n.Description, n.UpdatedAt, n.ID)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetNodeParent(id string, parentID *string, sortOrder int64) error {
	_, err := s.db.Exec("UPDATE nodes SET parent_id = ?, sort_order = ? WHERE id = ?",
		nullString(parentID), sortOrder, id)
	if err != nil {
		return fmt.Errorf("updating node parent: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetNodeStore(id string, storeRef *string, activeBranch *string) error {
	_, err := s.db.Exec("UPDATE nodes SET store_ref = ?, active_branch = ? WHERE id = ?",
		nullString(storeRef), nullString(activeBranch), id)
	if err != nil {
		return fmt.Errorf("updating node store reference: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetNodeActiveBranch(id string, branch string) error {
	_, err := s.db.Exec("UPDATE nodes SET active_branch = ? WHERE id = ?", branch, id)
	if err != nil {
		return fmt.Errorf("updating node active branch: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteNodes(ids []string) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec("DELETE FROM nodes WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting node %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) CountChildren(id string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE parent_id = ?", id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting children: %w", err)
	}
	return count, nil
}

func (s *SQLiteDatabase) NextSiblingOrder(parentID *string) (int64, error) {
	var query string
	var args []any
	if parentID == nil {
		query = "SELECT COALESCE(MAX(sort_order) + 1, 0) FROM nodes WHERE parent_id IS NULL"
	} else {
		query = "SELECT COALESCE(MAX(sort_order) + 1, 0) FROM nodes WHERE parent_id = ?"
		args = append(args, *parentID)
	}
	var order int64
	if err := s.db.QueryRow(query, args...).Scan(&order); err != nil {
		return 0, fmt.Errorf("computing sibling order: %w", err)
	}
	return order, nil
}

// ReorderChildren rewrites sort_order for the children of parentID.
// The id list must match the current child set exactly; otherwise the
// transaction rolls back and the order is unchanged.
func (s *SQLiteDatabase) ReorderChildren(parentID string, orderedIDs []string) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id FROM nodes WHERE parent_id = ?", parentID)
	if err != nil {
		return fmt.Errorf("loading current children: %w", err)
	}
	current := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning child id: %w", err)
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading current children: %w", err)
	}

	if len(orderedIDs) != len(current) {
		return fmt.Errorf("reorder list has %d ids but parent %s has %d children", len(orderedIDs), parentID, len(current))
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !current[id] {
			return fmt.Errorf("node %s is not a child of %s: %w", id, parentID, quill.ErrNotFound)
		}
		if seen[id] {
			return fmt.Errorf("node %s appears twice in reorder list", id)
		}
		seen[id] = true
	}

	for i, id := range orderedIDs {
		if _, err := tx.Exec("UPDATE nodes SET sort_order = ? WHERE id = ?", int64(i), id); err != nil {
			return fmt.Errorf("updating order of node %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetSubtree loads a node and its descendants in one recursive query,
// ordered by depth then sibling order. maxDepth < 0 means unbounded.
func (s *SQLiteDatabase) GetSubtree(rootID string, maxDepth int) ([]*quill.SubtreeNode, error) {
	query := `
		WITH RECURSIVE subtree(id, parent_id, kind, title, description, sort_order, store_ref, active_branch, created_at, updated_at, depth) AS (
			SELECT n.id, n.parent_id, n.kind, n.title, n.description, n.sort_order, n.store_ref, n.active_branch, n.created_at, n.updated_at, 0
			FROM nodes n WHERE n.id = ?
			UNION ALL
			SELECT c.id, c.parent_id, c.kind, c.title, c.description, c.sort_order, c.store_ref, c.active_branch, c.created_at, c.updated_at, t.depth + 1
			FROM nodes c JOIN subtree t ON c.parent_id = t.id
			WHERE ? < 0 OR t.depth < ?
		)
		SELECT id, parent_id, kind, title, description, sort_order, store_ref, active_branch, created_at, updated_at, depth
		FROM subtree ORDER BY depth, sort_order`

	rows, err := s.db.Query(query, rootID, maxDepth, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("loading subtree: %w", err)
	}
	defer rows.Close()

	var nodes []*quill.SubtreeNode
	for rows.Next() {
		var sn quill.SubtreeNode
		var parentID, storeRef, activeBranch sql.NullString
		err := rows.Scan(&sn.ID, &parentID, &sn.Kind, &sn.Title, &sn.Description, &sn.SortOrder,
			&storeRef, &activeBranch, &sn.CreatedAt, &sn.UpdatedAt, &sn.Depth)
		if err != nil {
			return nil, fmt.Errorf("scanning subtree node: %w", err)
		}
		sn.ParentID = nullableString(parentID)
		sn.StoreRef = nullableString(storeRef)
		sn.ActiveBranch = nullableString(activeBranch)
		nodes = append(nodes, &sn)
	}
	return nodes, rows.Err()
}

func (s *SQLiteDatabase) NodeDepth(id string) (int, error) {
	query := `
		WITH RECURSIVE ancestors(id, parent_id, depth) AS (
			SELECT id, parent_id, 1 FROM nodes WHERE id = ?
			UNION ALL
			SELECT n.id, n.parent_id, a.depth + 1
			FROM nodes n JOIN ancestors a ON n.id = a.parent_id
		)
		SELECT MAX(depth) FROM ancestors`

	var depth sql.NullInt64
	if err := s.db.QueryRow(query, id).Scan(&depth); err != nil {
		return 0, fmt.Errorf("computing node depth: %w", err)
	}
	if !depth.Valid {
		return 0, fmt.Errorf("node %s: %w", id, quill.ErrNotFound)
	}
	return int(depth.Int64), nil
}

// Content operations

const contentColumns = "id, node_id, scope_id, title, description, sort_order, store_ref, active_branch, active_version_id, active_snapshot_id, created_at, updated_at"

func scanContent(r rowScanner) (*model.Content, error) {
	var c model.Content
	var nodeID, scopeID, storeRef, activeBranch, activeVersion, activeSnapshot sql.NullString
	err := r.Scan(&c.ID, &nodeID, &scopeID, &c.Title, &c.Description, &c.SortOrder,
		&storeRef, &activeBranch, &activeVersion, &activeSnapshot, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.NodeID = nullableString(nodeID)
	c.ScopeID = nullableString(scopeID)
	c.StoreRef = nullableString(storeRef)
	c.ActiveBranch = nullableString(activeBranch)
	c.ActiveVersionID = nullableString(activeVersion)
	c.ActiveSnapshotID = nullableString(activeSnapshot)
	return &c, nil
}

func (s *SQLiteDatabase) CreateContent(c *model.Content) error {
	_, err := s.db.Exec(
		"INSERT INTO contents (id, node_id, scope_id, title, description, sort_order, store_ref, active_branch, active_version_id, active_snapshot_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, nullString(c.NodeID), nullString(c.ScopeID), c.Title, c.Description, c.SortOrder,
		nullString(c.StoreRef), nullString(c.ActiveBranch), nullString(c.ActiveVersionID), nullString(c.ActiveSnapshotID),
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting content: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetContent(id string) (*model.Content, error) {
	row := s.db.QueryRow("SELECT "+contentColumns+" FROM contents WHERE id = ?", id)
	c, err := scanContent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding content: %w", err)
	}
	return c, nil
}

func (s *SQLiteDatabase) listContents(query string, args ...any) ([]*model.Content, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contents: %w", err)
	}
	defer rows.Close()

	var contents []*model.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

func (s *SQLiteDatabase) ListContentsByNode(nodeID string) ([]*model.Content, error) {
	return s.listContents("SELECT "+contentColumns+" FROM contents WHERE node_id = ? ORDER BY sort_order, rowid", nodeID)
}

func (s *SQLiteDatabase) ListStandaloneContents(scopeID string) ([]*model.Content, error) {
	return s.listContents("SELECT "+contentColumns+" FROM contents WHERE node_id IS NULL AND scope_id = ? ORDER BY sort_order, rowid", scopeID)
}

// ReorderContents rewrites sort_order for the sibling contents of a
// node or a scope. The id list must match the current sibling set
// exactly; otherwise the transaction rolls back and the order is
// unchanged.
func (s *SQLiteDatabase) ReorderContents(nodeID *string, scopeID *string, orderedIDs []string) error {
	var query string
	var arg any
	switch {
	case nodeID != nil:
		query = "SELECT id FROM contents WHERE node_id = ?"
		arg = *nodeID
	case scopeID != nil:
		query = "SELECT id FROM contents WHERE node_id IS NULL AND scope_id = ?"
		arg = *scopeID
	default:
		return fmt.Errorf("reorder needs a node or a scope")
	}

	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(query, arg)
	if err != nil {
		return fmt.Errorf("loading current contents: %w", err)
	}
	current := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning content id: %w", err)
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading current contents: %w", err)
	}

	if len(orderedIDs) != len(current) {
		return fmt.Errorf("reorder list has %d ids but owner has %d contents", len(orderedIDs), len(current))
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !current[id] {
			return fmt.Errorf("content %s does not belong to the owner: %w", id, quill.ErrNotFound)
		}
		if seen[id] {
			return fmt.Errorf("content %s appears twice in reorder list", id)
		}
		seen[id] = true
	}

	for i, id := range orderedIDs {
		if _, err := tx.Exec("UPDATE contents SET sort_order = ? WHERE id = ?", int64(i), id); err != nil {
			return fmt.Errorf("updating order of content %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateContent(c *model.Content) error {
	_, err := s.db.Exec("UPDATE contents SET title = ?, description = ?, updated_at = ? WHERE id = ?",
		c.Title, c.Description, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("updating content: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetContentStore(id string, storeRef *string, activeBranch *string) error {
	_, err := s.db.Exec("UPDATE contents SET store_ref = ?, active_branch = ? WHERE id = ?",
		nullString(storeRef), nullString(activeBranch), id)
	if err != nil {
		return fmt.Errorf("updating content store reference: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) SetContentActiveBranch(id string, branch string) error {
	_, err := s.db.Exec("UPDATE contents SET active_branch = ? WHERE id = ?", branch, id)
	if err != nil {
		return fmt.Errorf("updating content active branch: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteContent(id string) error {
	_, err := s.db.Exec("DELETE FROM contents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) CountContentsByNode(nodeID string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM contents WHERE node_id = ?", nodeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting contents: %w", err)
	}
	return count, nil
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp brings the database schema to the latest version.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements quill.Database
var _ quill.Database = (*SQLiteDatabase)(nil)
