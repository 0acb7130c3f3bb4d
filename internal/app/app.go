package app

import (
	"fmt"
	"os"
	"time"

	"quill-go/internal/config"
	"quill-go/internal/database"
	"quill-go/internal/quill"
	"quill-go/internal/store"
)

// App is the application layer between the CLI and the Service.
// It constructs all dependencies from config and manages the DB
// lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	stores  quill.StoreManager
	Service *quill.Service
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "CreateNode").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	clock := quill.RealClock{}
	idgen := quill.UUIDGenerator{}

	stores, err := store.NewStoreManagerFromConfig(cfg.Store, db, clock, idgen)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store manager: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Info("starting operation", "operation", operation)

	svc := quill.NewService(db, stores, &slogAdapter{l: logger}, clock, idgen, cfg.Retention.KeepCount)

	return &App{
		cfg:     cfg,
		db:      db,
		stores:  stores,
		Service: svc,
		logFile: logFile,
	}, nil
}

// Close closes the database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
