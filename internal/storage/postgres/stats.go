package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/admin"
)

var _ admin.Counter = (*StatsRepository)(nil)

// StatsRepository implements admin.Counter.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

type countQuery struct {
	table        string
	statusColumn string
}

var countQueries = map[admin.Table]countQuery{
	admin.TableUsers:    {table: "users"},
	admin.TableGames:    {table: "games"},
	admin.TableOrders:   {table: "orders", statusColumn: "order_status"},
	admin.TablePayments: {table: "payments", statusColumn: "payment_status"},
	admin.TableLibrary:  {table: "user_game_library"},
}

func (r *StatsRepository) Count(ctx context.Context, t admin.Table, status string) (int, error) {
	cq, ok := countQueries[t]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", t)
	}
	if status == "" {
		n, err := count(ctx, r.pool, `SELECT COUNT(*) FROM `+cq.table)
		if err != nil {
			return 0, fmt.Errorf("counting %s: %w", cq.table, err)
		}
		return n, nil
	}
	if cq.statusColumn == "" {
		return 0, fmt.Errorf("table %q has no status column", t)
	}
	n, err := count(ctx, r.pool, `SELECT COUNT(*) FROM `+cq.table+` WHERE `+cq.statusColumn+` = $1`, status)
	if err != nil {
		return 0, fmt.Errorf("counting %s with status %q: %w", cq.table, status, err)
	}
	return n, nil
}
