package persist

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the durable client-side state database. Engine state lives in a
// key/value table with one row per logical field, each independently
// JSON-encoded, so partial corruption of one key does not necessarily
// invalidate the others. The sync queue has its own ordered table.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the state database at dir/state.db and applies
// pending migrations.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: log}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for the sync queue table.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM engine_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) putAll(pairs map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning write: %w", err)
	}
	defer tx.Rollback()

	for key, value := range pairs {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO engine_state (key, value) VALUES (?, ?)`,
			key, value,
		); err != nil {
			return fmt.Errorf("writing key %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *Store) deleteKeys(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM engine_state WHERE key = ?`, key); err != nil {
			return fmt.Errorf("deleting key %s: %w", key, err)
		}
	}
	return tx.Commit()
}
