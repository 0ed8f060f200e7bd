// Package store persists the user's binding choice in SQLite. The engine
// itself never touches it: the daemon loads the binding at start and saves
// it when the user rebinds.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hotkeyd/internal/keybind"
)

// Store represents the SQLite binding store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadBinding returns the saved binding. ok is false when none was saved.
func (s *Store) LoadBinding() (b keybind.Binding, ok bool, err error) {
	var spec string
	err = s.db.QueryRow("SELECT spec FROM binding WHERE id = 1").Scan(&spec)
	if errors.Is(err, sql.ErrNoRows) {
		return keybind.Binding{}, false, nil
	}
	if err != nil {
		return keybind.Binding{}, false, fmt.Errorf("load binding: %w", err)
	}
	b, err = keybind.ParseBinding(spec)
	if err != nil {
		return keybind.Binding{}, false, fmt.Errorf("stored binding %q: %w", spec, err)
	}
	return b, true, nil
}

// SaveBinding replaces the saved binding and appends a history entry. Saving
// the binding already stored is a no-op.
func (s *Store) SaveBinding(b keybind.Binding, reason string) error {
	spec := b.String()
	now := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow("SELECT spec FROM binding WHERE id = 1").Scan(&current)
	switch {
	case err == nil && current == spec:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("read current binding: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO binding (id, spec, kind, key_code, modifiers, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			spec = excluded.spec,
			kind = excluded.kind,
			key_code = excluded.key_code,
			modifiers = excluded.modifiers,
			updated_at = excluded.updated_at`,
		spec, b.Kind().String(), int64(b.Code()), int64(b.Modifiers()), now,
	); err != nil {
		return fmt.Errorf("save binding: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO binding_history (spec, kind, changed_at, reason) VALUES (?, ?, ?, ?)",
		spec, b.Kind().String(), now, reason,
	); err != nil {
		return fmt.Errorf("record binding history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit binding: %w", err)
	}
	return nil
}

// ClearBinding forgets the saved binding. History is kept.
func (s *Store) ClearBinding() error {
	if _, err := s.db.Exec("DELETE FROM binding WHERE id = 1"); err != nil {
		return fmt.Errorf("clear binding: %w", err)
	}
	return nil
}

// History returns up to limit binding changes, newest first. A non-positive
// limit returns all of them.
func (s *Store) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, spec, kind, changed_at, COALESCE(reason, '')
		FROM binding_history
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query binding history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var changedAt int64
		if err := rows.Scan(&e.ID, &e.Binding, &e.Kind, &changedAt, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ChangedAt = time.Unix(0, changedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
