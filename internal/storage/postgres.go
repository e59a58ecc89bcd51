// Package storage implements durable pgx-backed persistence for the pool's
// commitment tree, nullifier registry, and scanner cursor — the three
// pieces of state spec.md §6 lists under "Persisted state layout" that
// need to survive process restarts.
//
// Adapts internal/storage/postgres.go's PostgresStore wholesale from the
// teacher's block/transaction schema onto these tables, keeping the same
// pgxpool connection setup and ON CONFLICT-based idempotent writes.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilpool/shieldpool/pkg/types"
)

// Common errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrDBConnection = errors.New("database connection error")
)

// PostgresStore implements persistent storage for one pool's tree nodes,
// nullifiers, and scanner cursor using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "shieldpool",
		Password: "",
		Database: "shieldpool",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// PoolStore scopes a PostgresStore's shared connection pool to a single
// pool id, implementing both internal/merkletree.Store and
// internal/nullifier.Store so one *PoolStore can back both of a pool's
// persisted structures.
type PoolStore struct {
	db     *PostgresStore
	poolID types.PoolID
}

// NewPoolStore returns a PoolStore scoped to poolID.
func (s *PostgresStore) NewPoolStore(poolID types.PoolID) *PoolStore {
	return &PoolStore{db: s, poolID: poolID}
}

// ============================================
// Merkle tree node storage (internal/merkletree.Store)
// ============================================

// GetNode implements merkletree.Store.
func (s *PoolStore) GetNode(ctx context.Context, level, index uint64) (types.Hash, error) {
	var hashBytes []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT hash FROM tree_nodes WHERE pool_id = $1 AND level = $2 AND index = $3`,
		s.poolID[:], level, index,
	).Scan(&hashBytes)
	if err == pgx.ErrNoRows {
		return types.EmptyHash, ErrNotFound
	}
	if err != nil {
		return types.EmptyHash, err
	}
	return types.HashFromBytes(hashBytes), nil
}

// SetNode implements merkletree.Store.
func (s *PoolStore) SetNode(ctx context.Context, level, index uint64, hash types.Hash) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO tree_nodes (pool_id, level, index, hash)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (pool_id, level, index) DO UPDATE SET hash = $4`,
		s.poolID[:], level, index, hash[:],
	)
	return err
}

// GetRoot implements merkletree.Store.
func (s *PoolStore) GetRoot(ctx context.Context) (types.Hash, error) {
	var hashBytes []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT root FROM tree_state WHERE pool_id = $1`, s.poolID[:],
	).Scan(&hashBytes)
	if err == pgx.ErrNoRows {
		return types.EmptyHash, ErrNotFound
	}
	if err != nil {
		return types.EmptyHash, err
	}
	return types.HashFromBytes(hashBytes), nil
}

// SetRoot implements merkletree.Store.
func (s *PoolStore) SetRoot(ctx context.Context, root types.Hash) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO tree_state (pool_id, root, size)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (pool_id) DO UPDATE SET root = $2`,
		s.poolID[:], root[:],
	)
	return err
}

// GetSize implements merkletree.Store.
func (s *PoolStore) GetSize(ctx context.Context) (uint64, error) {
	var size uint64
	err := s.db.pool.QueryRow(ctx,
		`SELECT size FROM tree_state WHERE pool_id = $1`, s.poolID[:],
	).Scan(&size)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	return size, err
}

// SetSize implements merkletree.Store.
func (s *PoolStore) SetSize(ctx context.Context, size uint64) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO tree_state (pool_id, root, size)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (pool_id) DO UPDATE SET size = $3`,
		s.poolID[:], types.EmptyHash[:], size,
	)
	return err
}

// ============================================
// Nullifier registry storage (internal/nullifier.Store)
// ============================================

// Has implements nullifier.Store.
func (s *PoolStore) Has(ctx context.Context, n types.Hash) (bool, error) {
	var exists bool
	err := s.db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM nullifiers WHERE pool_id = $1 AND nullifier = $2)`,
		s.poolID[:], n[:],
	).Scan(&exists)
	return exists, err
}

// Add implements nullifier.Store.
func (s *PoolStore) Add(ctx context.Context, n types.Hash) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO nullifiers (pool_id, nullifier) VALUES ($1, $2)
		 ON CONFLICT (pool_id, nullifier) DO NOTHING`,
		s.poolID[:], n[:],
	)
	return err
}

// ============================================
// Scanner cursor storage (internal/scanner.CursorStore)
// ============================================

// GetCursor returns the last-processed cursor for a given owner/pool scan,
// or the zero cursor if none has been recorded yet.
func (s *PostgresStore) GetCursor(ctx context.Context, scanID string) (types.Cursor, error) {
	var block, index uint64
	err := s.pool.QueryRow(ctx,
		`SELECT block, index FROM scan_cursors WHERE scan_id = $1`, scanID,
	).Scan(&block, &index)
	if err == pgx.ErrNoRows {
		return types.Cursor{}, nil
	}
	if err != nil {
		return types.Cursor{}, err
	}
	return types.Cursor{Block: block, Index: index}, nil
}

// SetCursor persists the last-processed cursor for a scan.
func (s *PostgresStore) SetCursor(ctx context.Context, scanID string, cursor types.Cursor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_cursors (scan_id, block, index) VALUES ($1, $2, $3)
		 ON CONFLICT (scan_id) DO UPDATE SET block = $2, index = $3`,
		scanID, cursor.Block, cursor.Index,
	)
	return err
}

// Schema is the DDL that must be applied before a PostgresStore is used.
// Kept as a Go constant (rather than a separate migration tool) to match
// the teacher's practice of embedding its schema alongside the store.
const Schema = `
CREATE TABLE IF NOT EXISTS tree_nodes (
	pool_id BYTEA NOT NULL,
	level   BIGINT NOT NULL,
	index   BIGINT NOT NULL,
	hash    BYTEA NOT NULL,
	PRIMARY KEY (pool_id, level, index)
);

CREATE TABLE IF NOT EXISTS tree_state (
	pool_id BYTEA PRIMARY KEY,
	root    BYTEA NOT NULL,
	size    BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nullifiers (
	pool_id   BYTEA NOT NULL,
	nullifier BYTEA NOT NULL,
	PRIMARY KEY (pool_id, nullifier)
);

CREATE TABLE IF NOT EXISTS scan_cursors (
	scan_id TEXT PRIMARY KEY,
	block   BIGINT NOT NULL,
	index   BIGINT NOT NULL
);
`
