// Package postgres implements the storefront repositories on PostgreSQL with
// pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/db"
	"github.com/xenking/gamestore/internal/domain/page"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so repositories work the
// same inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// inTx runs fn in a READ COMMITTED transaction. Callers lock the rows they
// mutate with SELECT ... FOR UPDATE. The transaction commits only if fn
// returns nil.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique violation of the named
// constraint or index. An empty name matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// sortSpec maps logical sort keys to whitelisted columns.
type sortSpec struct {
	columns  map[string]string
	fallback string
	// tiebreak keeps pagination stable when the sort column has duplicates.
	tiebreak string
}

// clause renders ORDER BY plus LIMIT and OFFSET placeholders numbered from
// argN.
func (s sortSpec) clause(req page.Request, argN int) string {
	col, ok := s.columns[req.SortBy]
	if !ok {
		col = s.fallback
	}
	dir := "ASC"
	if req.Desc {
		dir = "DESC"
	}

	var b strings.Builder
	fmt.Fprintf(&b, " ORDER BY %s %s", col, dir)
	if s.tiebreak != "" && s.tiebreak != col {
		fmt.Fprintf(&b, ", %s %s", s.tiebreak, dir)
	}
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", argN, argN+1)
	return b.String()
}

// count runs a COUNT(*) query and returns the result as int.
func count(ctx context.Context, q Querier, sql string, args ...any) (int, error) {
	var n int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}
