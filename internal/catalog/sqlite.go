package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRegistry persists runtime-registered types. Built-in types are
// served from memory and never stored.
type SQLiteRegistry struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS requirement_types (
	code        TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`

// NewSQLiteRegistry opens (or creates) the registry database at dbPath
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// Close releases the database handle
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Lookup resolves a code against the built-in types, then the stored ones
func (r *SQLiteRegistry) Lookup(ctx context.Context, code string) (RequirementType, error) {
	if t, ok := Builtin(code); ok {
		return t, nil
	}
	var t RequirementType
	err := r.db.GetContext(ctx, &t,
		"SELECT code, label, description FROM requirement_types WHERE code = ?", code)
	if errors.Is(err, sql.ErrNoRows) {
		return RequirementType{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return RequirementType{}, fmt.Errorf("lookup %s: %w", code, err)
	}
	return t, nil
}

// List returns the built-in and stored types, sorted by code
func (r *SQLiteRegistry) List(ctx context.Context) ([]RequirementType, error) {
	var stored []RequirementType
	if err := r.db.SelectContext(ctx, &stored,
		"SELECT code, label, description FROM requirement_types"); err != nil {
		return nil, fmt.Errorf("list requirement types: %w", err)
	}
	out := append(Builtins(), stored...)
	sortTypes(out)
	return out, nil
}

// Register validates and stores a new type; built-in and duplicate codes are rejected
func (r *SQLiteRegistry) Register(ctx context.Context, t RequirementType) (RequirementType, error) {
	t, err := normalize(t)
	if err != nil {
		return RequirementType{}, err
	}
	_, err = r.db.NamedExecContext(ctx,
		"INSERT INTO requirement_types (code, label, description) VALUES (:code, :label, :description)", t)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return RequirementType{}, fmt.Errorf("%w: %s", ErrDuplicate, t.Code)
		}
		return RequirementType{}, fmt.Errorf("register %s: %w", t.Code, err)
	}
	return t, nil
}
