// Package store persists programs and their event collections in SQLite.
//
// Each program is one JSON document, and so is its event collection. Event
// collections are only ever replaced whole.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/model"
)

// ErrNotFound is returned when a program does not exist.
var ErrNotFound = errors.New("store: not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS programs (
	id         TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	program_id TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Store is a SQLite-backed program repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection serializes writers and pins ":memory:" to one database.
	db.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	appLog.Debug("store opened", "path", path)
	return s, nil
}

// New wraps an open database and ensures the schema exists.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProgram inserts or replaces p.
func (s *Store) SaveProgram(ctx context.Context, p model.Program) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.putProgram(ctx, tx, p)
	})
}

// Program loads the program with the given id.
func (s *Store) Program(ctx context.Context, id string) (model.Program, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM programs WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Program{}, fmt.Errorf("program %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Program{}, fmt.Errorf("store: load program %s: %w", id, err)
	}

	var p model.Program
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Program{}, fmt.Errorf("store: decode program %s: %w", id, err)
	}
	return p, nil
}

// Programs lists every program ordered by id.
func (s *Store) Programs(ctx context.Context) ([]model.Program, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, doc FROM programs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list programs: %w", err)
	}
	defer rows.Close()

	programs := make([]model.Program, 0)
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("store: scan program: %w", err)
		}
		var p model.Program
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("store: decode program %s: %w", id, err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// DeleteProgram removes a program and its events.
func (s *Store) DeleteProgram(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM programs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("store: delete program %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE program_id = ?", id); err != nil {
			return fmt.Errorf("store: delete events %s: %w", id, err)
		}
		return nil
	})
}

// Events returns the stored collection of a program, empty when nothing
// was saved.
func (s *Store) Events(ctx context.Context, programID string) ([]model.Event, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM events WHERE program_id = ?", programID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load events %s: %w", programID, err)
	}

	events := make([]model.Event, 0)
	if err := json.Unmarshal([]byte(doc), &events); err != nil {
		return nil, fmt.Errorf("store: decode events %s: %w", programID, err)
	}
	return events, nil
}

// ReplaceEvents stores events as the whole collection of programID.
func (s *Store) ReplaceEvents(ctx context.Context, programID string, events []model.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.putEvents(ctx, tx, programID, events)
	})
}

// Save writes a program and its collection in one transaction.
func (s *Store) Save(ctx context.Context, p model.Program, events []model.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.putProgram(ctx, tx, p); err != nil {
			return err
		}
		return s.putEvents(ctx, tx, p.ID, events)
	})
}

func (s *Store) putProgram(ctx context.Context, tx *sql.Tx, p model.Program) error {
	if p.ID == "" {
		return errors.New("store: program id is empty")
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode program %s: %w", p.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO programs (id, doc, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at",
		p.ID, string(doc), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: save program %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) putEvents(ctx context.Context, tx *sql.Tx, programID string, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	doc, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("store: encode events %s: %w", programID, err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (program_id, doc, updated_at) VALUES (?, ?, ?) ON CONFLICT(program_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at",
		programID, string(doc), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: save events %s: %w", programID, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
