package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverNameConstant             = "sqlite"
	sqliteDirectoryPermissionsConstant   = 0o750
	sqliteOpenErrorTemplateConstant      = "failed to open sqlite database %s: %w"
	sqliteDirectoryErrorTemplateConstant = "failed to create sqlite directory %s: %w"
	sqlitePragmaErrorTemplateConstant    = "failed to execute %q: %w"
	sqliteSchemaErrorTemplateConstant    = "failed to apply sqlite schema: %w"
	sqliteWriteErrorTemplateConstant     = "failed to write key %q: %w"
	sqliteTimestampLayoutConstant        = time.RFC3339Nano
	sqliteSchemaStatementConstant        = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`
	sqliteSelectStatementConstant = `SELECT value FROM kv WHERE key = ?`
	sqliteUpsertStatementConstant = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// SQLiteStore persists values in a single key-value table of a local SQLite database.
type SQLiteStore struct {
	database *sql.DB
	now      func() time.Time
}

// OpenSQLiteStore opens or creates the database at databasePath and applies the schema.
func OpenSQLiteStore(executionContext context.Context, databasePath string) (*SQLiteStore, error) {
	if directory := filepath.Dir(databasePath); len(directory) > 0 {
		if mkdirError := os.MkdirAll(directory, sqliteDirectoryPermissionsConstant); mkdirError != nil {
			return nil, fmt.Errorf(sqliteDirectoryErrorTemplateConstant, directory, mkdirError)
		}
	}

	database, openError := sql.Open(sqliteDriverNameConstant, databasePath)
	if openError != nil {
		return nil, fmt.Errorf(sqliteOpenErrorTemplateConstant, databasePath, openError)
	}

	// SQLite allows a single writer.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	store, initializationError := NewSQLiteStore(executionContext, database)
	if initializationError != nil {
		_ = database.Close()
		return nil, initializationError
	}
	return store, nil
}

// NewSQLiteStore wraps an open database handle and applies pragmas and schema.
func NewSQLiteStore(executionContext context.Context, database *sql.DB) (*SQLiteStore, error) {
	for _, pragma := range sqlitePragmas {
		if _, pragmaError := database.ExecContext(executionContext, pragma); pragmaError != nil {
			return nil, fmt.Errorf(sqlitePragmaErrorTemplateConstant, pragma, pragmaError)
		}
	}

	if _, schemaError := database.ExecContext(executionContext, sqliteSchemaStatementConstant); schemaError != nil {
		return nil, fmt.Errorf(sqliteSchemaErrorTemplateConstant, schemaError)
	}

	return &SQLiteStore{database: database, now: time.Now}, nil
}

// Get returns the value stored under key.
func (store *SQLiteStore) Get(executionContext context.Context, key string) ([]byte, bool, error) {
	if keyError := validateKey(key); keyError != nil {
		return nil, false, keyError
	}

	var value []byte
	scanError := store.database.QueryRowContext(executionContext, sqliteSelectStatementConstant, key).Scan(&value)
	switch {
	case errors.Is(scanError, sql.ErrNoRows):
		return nil, false, nil
	case scanError != nil:
		return nil, false, scanError
	default:
		return value, true, nil
	}
}

// Set upserts value under key.
func (store *SQLiteStore) Set(executionContext context.Context, key string, value []byte) error {
	if keyError := validateKey(key); keyError != nil {
		return keyError
	}

	timestamp := store.now().UTC().Format(sqliteTimestampLayoutConstant)
	if _, execError := store.database.ExecContext(executionContext, sqliteUpsertStatementConstant, key, value, timestamp); execError != nil {
		return fmt.Errorf(sqliteWriteErrorTemplateConstant, key, execError)
	}
	return nil
}

// Close releases the database handle.
func (store *SQLiteStore) Close() error {
	if store.database == nil {
		return nil
	}
	return store.database.Close()
}
