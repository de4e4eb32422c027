package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the minimal set of database operations the repos use.
// *pgxpool.Pool, pgx.Tx and pgxmock pools all satisfy this interface, so a
// repo call runs the same against the pool, inside a transaction, or under a
// mock.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
