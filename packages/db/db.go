// Package db persists environment bindings in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

var (
	// ErrDuplicateName is returned when an environment name is already taken.
	ErrDuplicateName = errors.New("environment name already exists")
	// ErrNotFound is returned when no environment has the requested id.
	ErrNotFound = errors.New("environment not found")
)

const schema = `CREATE TABLE IF NOT EXISTS environments (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	variables TEXT NOT NULL
)`

// columns added after the first release; each is created when missing.
var migrations = []struct {
	column     string
	definition string
}{
	{column: "default_endpoint", definition: "TEXT"},
}

// Store is the SQLite-backed environment store.
type Store struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// DefaultPath returns the database location under the user config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "hitpad", "hitpad.db"), nil
}

// Open opens or creates the database at location and brings the schema up to
// date. location is a file path, optionally prefixed with sqlite:// or
// sqlite:. Opening an existing database is idempotent.
func Open(location string) (*Store, error) {
	path := parseConnectionString(location)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, path: path, queryTimeout: 30 * time.Second}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// parseConnectionString strips an optional sqlite:// or sqlite: prefix.
func parseConnectionString(location string) string {
	location = strings.TrimSpace(location)
	if strings.HasPrefix(location, "sqlite://") {
		return strings.TrimPrefix(location, "sqlite://")
	}
	if strings.HasPrefix(location, "sqlite:") {
		return strings.TrimPrefix(location, "sqlite:")
	}
	return location
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	existing, err := s.columns(ctx, "environments")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE environments ADD COLUMN %s %s", m.column, m.definition)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", m.column, err)
		}
	}
	return nil
}

func (s *Store) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, kind string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &kind, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Path returns the database file in use.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create inserts an empty environment named name.
func (s *Store) Create(name string) (*env.Binding, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO environments (name, variables) VALUES (?, ?)",
		name, "[]")
	if err != nil {
		return nil, wrapConstraint(err, "create environment")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment id: %w", err)
	}
	return &env.Binding{ID: id, Name: name, Variables: []kv.Pair{}}, nil
}

// List returns every environment ordered by id.
func (s *Store) List() ([]*env.Binding, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, variables, default_endpoint FROM environments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var result []*env.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

// Get returns the environment with the given id.
func (s *Store) Get(id int64) (*env.Binding, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, variables, default_endpoint FROM environments WHERE id = ?", id)
	b, err := scanBinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("environment %d: %w", id, ErrNotFound)
	}
	return b, err
}

// Update overwrites name, variables and default endpoint of b.ID.
func (s *Store) Update(b *env.Binding) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	vars, err := encodeVariables(b.Variables)
	if err != nil {
		return err
	}

	var endpoint sql.NullString
	if b.DefaultBaseURL != nil {
		endpoint = sql.NullString{String: *b.DefaultBaseURL, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE environments SET name = ?, variables = ?, default_endpoint = ? WHERE id = ?",
		b.Name, vars, endpoint, b.ID)
	if err != nil {
		return wrapConstraint(err, "update environment")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("environment %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the environment with the given id. Deleting a missing id is
// not an error.
func (s *Store) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM environments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete environment: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(row scanner) (*env.Binding, error) {
	var (
		b        env.Binding
		vars     string
		endpoint sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Name, &vars, &endpoint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	pairs, err := decodeVariables(vars)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", b.Name, err)
	}
	b.Variables = pairs

	if endpoint.Valid {
		u := endpoint.String
		b.DefaultBaseURL = &u
	}
	return &b, nil
}

// Variables are stored as a JSON array of [key, value] arrays so order and
// duplicate keys survive.
func encodeVariables(pairs []kv.Pair) (string, error) {
	tuples := make([][2]string, len(pairs))
	for i, p := range pairs {
		tuples[i] = [2]string{p.Key, p.Value}
	}
	data, err := json.Marshal(tuples)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}
	return string(data), nil
}

func decodeVariables(data string) ([]kv.Pair, error) {
	var tuples [][2]string
	if err := json.Unmarshal([]byte(data), &tuples); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	pairs := make([]kv.Pair, len(tuples))
	for i, t := range tuples {
		pairs[i] = kv.Pair{Key: t[0], Value: t[1]}
	}
	return pairs, nil
}

func wrapConstraint(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", op, ErrDuplicateName)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
