package testutil

import (
	"testing"

	"quill-go/internal/database"
	"quill-go/internal/quill"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// FailingDatabase wraps a real Database and injects errors into the
// store-reference writes, for exercising compensation when the
// reference persist step of the attach protocol fails.
type FailingDatabase struct {
	quill.Database

	SetNodeStoreErr    error
	SetContentStoreErr error
}

func (d *FailingDatabase) SetNodeStore(id string, storeRef *string, activeBranch *string) error {
	if d.SetNodeStoreErr != nil {
		return d.SetNodeStoreErr
	}
	return d.Database.SetNodeStore(id, storeRef, activeBranch)
}

func (d *FailingDatabase) SetContentStore(id string, storeRef *string, activeBranch *string) error {
	if d.SetContentStoreErr != nil {
		return d.SetContentStoreErr
	}
	return d.Database.SetContentStore(id, storeRef, activeBranch)
}

var _ quill.Database = (*FailingDatabase)(nil)
