package storage

import (
	"fmt"

	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/influx"
	badgerstorage "github.com/pinmap/pinstate/internal/storage/badger"
	"github.com/pinmap/pinstate/internal/storage/memory"
	"github.com/pinmap/pinstate/internal/storage/postgres"
	sqlitestorage "github.com/pinmap/pinstate/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized; callers run Init before the first session.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, log)
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, log)
	case "influx":
		return influx.NewManager(cfg.Influx, log), nil
	case "badger":
		return badgerstorage.New(cfg.Badger, log), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
