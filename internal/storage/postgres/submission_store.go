// Package postgres provides the Postgres-backed submission ledger.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

const defaultTable = "submissions"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SubmissionStoreConfig controls the Postgres connection pool used for ledger rows.
type SubmissionStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// SubmissionStore writes one row per stored artifact. It only records
// metadata; artifact bytes never leave the in-memory store through it.
type SubmissionStore struct {
	pool  execCloser
	table string
}

// NewSubmissionStore creates a Postgres-backed SubmissionStore using the provided config.
func NewSubmissionStore(ctx context.Context, cfg SubmissionStoreConfig) (*SubmissionStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SubmissionStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewSubmissionStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewSubmissionStoreWithPool(pool execCloser, table string) (*SubmissionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &SubmissionStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the ledger table when it does not exist.
func (s *SubmissionStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id           TEXT PRIMARY KEY,
	source_hash  TEXT NOT NULL,
	source_type  TEXT NOT NULL,
	width        INTEGER NOT NULL,
	height       INTEGER NOT NULL,
	output_bytes INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *SubmissionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordSubmission inserts a ledger row. A repeated id keeps the first row.
func (s *SubmissionStore) RecordSubmission(ctx context.Context, record artifact.SubmissionRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("submission store is not configured")
	}
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	source_hash,
	source_type,
	width,
	height,
	output_bytes,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO NOTHING`, s.table)

	args := []any{
		record.ID.String(),
		record.SourceHash,
		record.SourceType,
		record.Width,
		record.Height,
		record.OutputBytes,
		record.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}
