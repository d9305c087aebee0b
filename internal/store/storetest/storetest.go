// Package storetest opens throwaway databases for tests.
package storetest

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/store"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// SQLiteConfig returns a config for a fresh SQLite file in a temp dir.
// Opening it twice gives two independent handles on one database.
func SQLiteConfig(tb testing.TB) config.DatabaseConfig {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "recipemerge.db")
	return config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    path + "?_busy_timeout=5000&_journal_mode=WAL",
	}
}

func Open(tb testing.TB, cfg config.DatabaseConfig) *gorm.DB {
	tb.Helper()
	db, err := store.OpenQuiet(cfg)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close(db) })
	return db
}

func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	return Open(tb, SQLiteConfig(tb))
}

// Postgres returns a shared database from TEST_POSTGRES_DSN and skips the
// test when it is unset.
func Postgres(tb testing.TB) *gorm.DB {
	tb.Helper()
	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}
		pgDB, pgErr = store.OpenQuiet(config.DatabaseConfig{Driver: "postgres", DSN: dsn})
	})
	if errors.Is(pgErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	return pgDB
}
