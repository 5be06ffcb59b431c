// Package postgres implements the storage.Backend interface on a Postgres
// server through the GORM backend.
package postgres

import (
	"fmt"
	"time"

	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/database"
	gormstorage "github.com/pinmap/pinstate/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// FlushInterval is how often buffered transitions are written to Postgres.
const FlushInterval = 2 * time.Second

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
}

// New connects to Postgres and returns the backend. The connection is
// validated before returning.
func New(cfg config.PostgresConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetPostgresDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:            db,
			Logger:        log,
			FlushInterval: FlushInterval,
		}),
		cfg: cfg,
	}, nil
}

// Close writes pending transitions and closes the connection pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
