package stores

import (
	"fmt"
	"strings"
)

// DefaultSQLitePath is used when no database is configured.
const DefaultSQLitePath = "haochat.sqlite"

// NewStore opens the store named by config.Type. "postgresql" is accepted as
// an alias of "postgres".
func NewStore(config *StoreConfig) (MessageStore, error) {
	if config == nil {
		return nil, fmt.Errorf("store config is required")
	}
	switch strings.ToLower(config.Type) {
	case "sqlite":
		config.Type = "sqlite"
		store, err := NewSQLiteStore(config)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "postgresql":
		config.Type = "postgres"
		store, err := NewPostgresStore(config)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewSQLiteStoreDefault opens DefaultSQLitePath in the working directory.
func NewSQLiteStoreDefault() (MessageStore, error) {
	return NewSQLiteStoreSimple(DefaultSQLitePath)
}
