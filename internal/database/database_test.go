package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host: "db", Port: "5433", Username: "u", Password: "p", Database: "pins",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=pins sslmode=disable", dsn)
}

func TestGetSqliteDB_InMemoryIsPrivate(t *testing.T) {
	a, err := GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)
	b, err := GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, Migrate(a, zerolog.Nop()))
	require.NoError(t, a.Create(&model.Session{ID: "s1", StartedAt: time.Now()}).Error)

	assert.False(t, b.Migrator().HasTable(&model.Session{}), "in-memory databases do not share state")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db, err := GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, Migrate(db, zerolog.Nop()))

	assert.True(t, db.Migrator().HasTable(&model.Session{}))
	assert.True(t, db.Migrator().HasTable(&model.Transition{}))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))
	require.NoError(t, db.Create(&model.Session{ID: "s1", StartedAt: time.Now(), Markers: 3}).Error)

	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, DumpWithTiming(db, path, zerolog.Nop()))

	disk, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	var got model.Session
	require.NoError(t, disk.First(&got, "id = ?", "s1").Error)
	assert.Equal(t, 3, got.Markers)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB("", zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestGetPostgresDB_Unreachable(t *testing.T) {
	_, err := GetPostgresDB(config.PostgresConfig{
		Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "x",
	}, zerolog.Nop())
	assert.Error(t, err)
}
