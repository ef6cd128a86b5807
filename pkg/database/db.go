// Package database opens the sqlite file that stores accounts and open loans.
// The book catalog itself is not kept here; see pkg/storage.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBusyTimeout = 5 * time.Second

type Config struct {
	Path string
	// BusyTimeout is how long a writer waits on a locked database.
	// Zero means defaultBusyTimeout.
	BusyTimeout time.Duration
}

// DefaultConfig honours BOOKHUB_DB_PATH, falling back to ~/.bookhub/bookhub.db.
func DefaultConfig() Config {
	if p := os.Getenv("BOOKHUB_DB_PATH"); p != "" {
		return Config{Path: p}
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{Path: filepath.Join(home, ".bookhub", "bookhub.db")}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

// DSN carries the connection pragmas in the URL so the driver applies them
// to every pooled connection, not only the first one.
func (cfg Config) DSN() string {
	timeout := cfg.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprint(timeout.Milliseconds()))
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Open opens the database and verifies the connection. Call Migrate before
// handing it to the auth and loan repositories.
func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}
	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("[db] open failed: %v", err)
	}
	return db
}
