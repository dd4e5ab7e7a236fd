// Package postgres provides a Postgres-backed state store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formwatch/formwatch/internal/watch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the state row.
type Config struct {
	DSN             string
	Table           string
	FormID          string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store keeps one state row per watched form in Postgres.
type Store struct {
	pool   dbPool
	table  string
	formID string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, cfg.Table, cfg.FormID)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool dbPool, table, formID string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "form_state"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if formID == "" {
		formID = "default"
	}
	return &Store{pool: pool, table: table, formID: formID}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load fetches the state row. An absent row is not an error.
func (s *Store) Load(ctx context.Context) (watch.State, error) {
	query := fmt.Sprintf(
		`SELECT accepting, checked_at FROM %s WHERE form_id = $1`,
		s.table,
	)
	var state watch.State
	err := s.pool.QueryRow(ctx, query, s.formID).Scan(&state.Accepting, &state.CheckedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return watch.State{}, nil
		}
		return watch.State{}, fmt.Errorf("load state row: %w", err)
	}
	return state, nil
}

// Save upserts the state row, fully overwriting the previous record.
func (s *Store) Save(ctx context.Context, state watch.State) error {
	query := fmt.Sprintf(`
INSERT INTO %s (form_id, accepting, checked_at)
VALUES ($1, $2, $3)
ON CONFLICT (form_id) DO UPDATE
SET accepting = EXCLUDED.accepting, checked_at = EXCLUDED.checked_at`,
		s.table,
	)
	if _, err := s.pool.Exec(ctx, query, s.formID, state.Accepting, state.CheckedAt); err != nil {
		return fmt.Errorf("save state row: %w", err)
	}
	return nil
}
