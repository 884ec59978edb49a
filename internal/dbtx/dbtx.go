// Package dbtx defines the query-executor capability shared by pooled
// connections and open transactions, so model-layer functions can run
// unchanged inside or outside a transaction.
package dbtx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx. Model functions
// accept a Querier instead of a concrete pool type, so the same helper
// works whether it's called standalone or as part of a larger transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
