package sizing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biwstack/biw-advisor/advisor"
)

// Querier is the subset of *pgxpool.Pool used by PGStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore reads table layout from a live PostgreSQL server.
//
// Page row counts come from the highest tuple offset visible through a ctid
// range scan, so dead line pointers past the last live tuple are not counted.
type PGStore struct {
	q    Querier
	pool *pgxpool.Pool
}

// undefinedTable is SQLSTATE 42P01.
const undefinedTable = "42P01"

// NewPGStore connects to dsn and verifies the connection.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PGStore{q: pool, pool: pool}, nil
}

// NewPGStoreWithQuerier wraps an existing connection or pool.
func NewPGStoreWithQuerier(q Querier) *PGStore {
	return &PGStore{q: q}
}

// Close releases the pool opened by NewPGStore.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// TableSizeBytes, PageCount and PageRowCount all resolve table through
// quoteTable, so names are case-sensitive everywhere.
func (s *PGStore) TableSizeBytes(ctx context.Context, table string) (uint64, error) {
	var size int64
	err := s.q.QueryRow(ctx, `SELECT pg_relation_size($1::regclass, 'main')`, quoteTable(table)).Scan(&size)
	if err != nil {
		return 0, mapError(table, err)
	}
	return uint64(size), nil
}

func (s *PGStore) PageCount(ctx context.Context, table string) (uint32, error) {
	var pages int64
	err := s.q.QueryRow(ctx,
		`SELECT pg_relation_size($1::regclass, 'main') / current_setting('block_size')::bigint`,
		quoteTable(table)).Scan(&pages)
	if err != nil {
		return 0, mapError(table, err)
	}
	return uint32(pages), nil
}

func (s *PGStore) PageRowCount(ctx context.Context, table string, page uint32) (uint32, error) {
	sql := fmt.Sprintf(
		`SELECT coalesce(max((ctid::text::point)[1]), 0)::bigint FROM %s WHERE ctid >= $1::tid AND ctid < $2::tid`,
		quoteTable(table))
	var rows int64
	lo := fmt.Sprintf("(%d,0)", page)
	hi := fmt.Sprintf("(%d,0)", uint64(page)+1)
	if err := s.q.QueryRow(ctx, sql, lo, hi).Scan(&rows); err != nil {
		return 0, mapError(table, err)
	}
	return uint32(rows), nil
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func mapError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("table %q: %w", table, advisor.ErrTableNotFound)
	}
	return fmt.Errorf("querying table %q: %w", table, err)
}
