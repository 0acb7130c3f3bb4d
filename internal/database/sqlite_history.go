package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quill-go/internal/model"
	"quill-go/internal/quill"
)

// Version and snapshot operations for the linear store strategy.
// Anything touching the content's active pointers runs in a single
// transaction so the pointers never dangle under partial failure.

const versionColumns = "id, content_id, name, created_at, updated_at"

func scanVersion(r rowScanner) (*model.Version, error) {
	var v model.Version
	if err := r.Scan(&v.ID, &v.ContentID, &v.Name, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteDatabase) CreateVersionWithSnapshot(v *model.Version, snap *model.Snapshot) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO versions (id, content_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		v.ID, v.ContentID, v.Name, v.CreatedAt, v.UpdatedAt); err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO snapshots (id, version_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.VersionID, snap.Body, snap.CreatedAt, snap.UpdatedAt); err != nil {
		return fmt.Errorf("inserting initial snapshot: %w", err)
	}

	if _, err := tx.Exec("UPDATE contents SET active_version_id = ?, active_snapshot_id = ?, updated_at = ? WHERE id = ?",
		v.ID, snap.ID, snap.CreatedAt, v.ContentID); err != nil {
		return fmt.Errorf("updating active pointers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetVersion(id string) (*model.Version, error) {
	row := s.db.QueryRow("SELECT "+versionColumns+" FROM versions WHERE id = ?", id)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version: %w", err)
	}
	return v, nil
}

func (s *SQLiteDatabase) FindVersionByName(contentID string, name string) (*model.Version, error) {
	row := s.db.QueryRow("SELECT "+versionColumns+" FROM versions WHERE content_id = ? AND name = ?", contentID, name)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding version by name: %w", err)
	}
	return v, nil
}

func (s *SQLiteDatabase) listVersions(query string, args ...any) ([]*model.Version, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteDatabase) ListVersions(contentID string) ([]*model.Version, error) {
	return s.listVersions("SELECT "+versionColumns+" FROM versions WHERE content_id = ? ORDER BY created_at, rowid", contentID)
}

func (s *SQLiteDatabase) ListAllVersions() ([]*model.Version, error) {
	return s.listVersions("SELECT " + versionColumns + " FROM versions ORDER BY created_at, rowid")
}

func (s *SQLiteDatabase) UpdateVersion(v *model.Version) error {
	_, err := s.db.Exec("UPDATE versions SET name = ?, updated_at = ? WHERE id = ?", v.Name, v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("updating version: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) CountVersions(contentID string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM versions WHERE content_id = ?", contentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting versions: %w", err)
	}
	return count, nil
}

func (s *SQLiteDatabase) DeleteVersion(id string) error {
	_, err := s.db.Exec("DELETE FROM versions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}
	return nil
}

// activateVersionTx points the content at versionID and its newest
// snapshot, inserting sentinel when the version has none. Returns the
// id of the snapshot made active.
func activateVersionTx(tx *sql.Tx, contentID, versionID string, sentinel *model.Snapshot) (string, error) {
	var activeID string
	err := tx.QueryRow("SELECT id FROM snapshots WHERE version_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1", versionID).Scan(&activeID)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec("INSERT INTO snapshots (id, version_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			sentinel.ID, versionID, sentinel.Body, sentinel.CreatedAt, sentinel.UpdatedAt); err != nil {
			return "", fmt.Errorf("inserting sentinel snapshot: %w", err)
		}
		activeID = sentinel.ID
	} else if err != nil {
		return "", fmt.Errorf("finding newest snapshot: %w", err)
	}

	if _, err := tx.Exec("UPDATE contents SET active_version_id = ?, active_snapshot_id = ? WHERE id = ?",
		versionID, activeID, contentID); err != nil {
		return "", fmt.Errorf("updating active pointers: %w", err)
	}
	return activeID, nil
}

func (s *SQLiteDatabase) ActivateVersion(contentID, versionID string, sentinel *model.Snapshot) (string, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	activeID, err := activateVersionTx(tx, contentID, versionID, sentinel)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}
	return activeID, nil
}

func (s *SQLiteDatabase) ActivateSnapshot(contentID, snapshotID string) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var versionID string
	err = tx.QueryRow("SELECT version_id FROM snapshots WHERE id = ?", snapshotID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("snapshot %s: %w", snapshotID, quill.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("finding snapshot: %w", err)
	}

	if _, err := tx.Exec("UPDATE contents SET active_version_id = ?, active_snapshot_id = ? WHERE id = ?",
		versionID, snapshotID, contentID); err != nil {
		return fmt.Errorf("updating active pointers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) CreateSnapshotActivate(snap *model.Snapshot, contentID string) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO snapshots (id, version_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.VersionID, snap.Body, snap.CreatedAt, snap.UpdatedAt); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	if _, err := tx.Exec("UPDATE contents SET active_version_id = ?, active_snapshot_id = ?, updated_at = ? WHERE id = ?",
		snap.VersionID, snap.ID, snap.CreatedAt, contentID); err != nil {
		return fmt.Errorf("updating active pointers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteVersionSwitchActive(contentID, versionID, nextVersionID string, sentinel *model.Snapshot) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM versions WHERE id = ?", versionID); err != nil {
		return fmt.Errorf("deleting version: %w", err)
	}

	if _, err := activateVersionTx(tx, contentID, nextVersionID, sentinel); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetSnapshot(id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.QueryRow("SELECT id, version_id, body, created_at, updated_at FROM snapshots WHERE id = ?", id).
		Scan(&snap.ID, &snap.VersionID, &snap.Body, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SQLiteDatabase) ListSnapshots(versionID string) ([]*model.Snapshot, error) {
	rows, err := s.db.Query("SELECT id, version_id, body, created_at, updated_at FROM snapshots WHERE version_id = ? ORDER BY created_at DESC, rowid DESC", versionID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.VersionID, &snap.Body, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteDatabase) UpdateSnapshotBody(id string, body string, updatedAt time.Time) error {
	res, err := s.db.Exec("UPDATE snapshots SET body = ?, updated_at = ? WHERE id = ?", body, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating snapshot body: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("snapshot %s: %w", id, quill.ErrNotFound)
	}
	return nil
}

// EvictSnapshots deletes a version's oldest snapshots beyond the newest
// keepCount. The active snapshot is never deleted: if it falls in the
// eviction range, the content's active pointer is reassigned to the
// newest retained snapshot first. Idempotent.
func (s *SQLiteDatabase) EvictSnapshots(versionID string, keepCount int) (int, error) {
	if keepCount <= 0 {
		return 0, fmt.Errorf("keep count must be positive, got %d", keepCount)
	}
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var contentID string
	err = tx.QueryRow("SELECT content_id FROM versions WHERE id = ?", versionID).Scan(&contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("version %s: %w", versionID, quill.ErrNotFound)
	} else if err != nil {
		return 0, fmt.Errorf("finding version: %w", err)
	}

	var activeSnapshot sql.NullString
	if err := tx.QueryRow("SELECT active_snapshot_id FROM contents WHERE id = ?", contentID).Scan(&activeSnapshot); err != nil {
		return 0, fmt.Errorf("loading active snapshot pointer: %w", err)
	}

	rows, err := tx.Query("SELECT id FROM snapshots WHERE version_id = ? ORDER BY created_at DESC, rowid DESC", versionID)
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}

	if len(ids) <= keepCount {
		return 0, nil
	}
	evicted := ids[keepCount:]

	// Reassign the active pointer before it would be evicted.
	if activeSnapshot.Valid {
		for _, id := range evicted {
			if id == activeSnapshot.String {
				if _, err := tx.Exec("UPDATE contents SET active_snapshot_id = ? WHERE id = ?", ids[0], contentID); err != nil {
					return 0, fmt.Errorf("reassigning active snapshot: %w", err)
				}
				break
			}
		}
	}

	args := make([]any, len(evicted))
	for i, id := range evicted {
		args[i] = id
	}
	if _, err := tx.Exec("DELETE FROM snapshots WHERE id IN ("+placeholders(len(evicted))+")", args...); err != nil {
		return 0, fmt.Errorf("deleting snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(evicted), nil
}
