package stores

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements MessageStore for SQLite databases
type SQLiteStore struct {
	gormStore
	dbPath string
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		dbPath: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a path
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	config := NewStoreConfig("sqlite", dbPath)
	return NewSQLiteStore(config)
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.dbPath), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// SQLite allows one writer; keep a single connection so transactions serialize.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	// Wait on a locked database instead of failing the write.
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return fmt.Errorf("failed to configure SQLite: %w", err)
	}

	s.db = db
	return s.migrate()
}
