package stores

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connection pool limits for the shared PostgreSQL database.
const (
	postgresMaxOpenConns    = 10
	postgresMaxIdleConns    = 5
	postgresConnMaxIdleTime = 5 * time.Minute
)

// PostgresStore implements MessageStore for PostgreSQL databases
type PostgresStore struct {
	gormStore
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}

	store := &PostgresStore{
		dsn: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return store, nil
}

// NewPostgresStoreSimple opens a PostgreSQL store from a DSN or postgres:// URL.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	config := NewStoreConfig("postgres", dsn)
	return NewPostgresStore(config)
}

// Connect opens the pool and migrates the schema.
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(postgresMaxOpenConns)
	sqlDB.SetMaxIdleConns(postgresMaxIdleConns)
	sqlDB.SetConnMaxIdleTime(postgresConnMaxIdleTime)

	s.db = db
	return s.migrate()
}
