package internal

import (
	"context"
	"database/sql"
	"os"
)

type ctxKey string

const dbConnKey ctxKey = "dbconn"

func rlsEnabled() bool {
	return os.Getenv("RLS_ENABLED") == "true"
}

// withDBConn pins a dedicated connection for the request and sets the tenant
// session GUC so Postgres row-level security policies can scope queries.
func withDBConn(ctx context.Context, db *sql.DB, tenantID string) (*sql.Conn, context.Context, error) {
	if !rlsEnabled() || tenantID == "" {
		return nil, ctx, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, ctx, err
	}
	// SET does not take bind parameters; set_config does.
	_, err = conn.ExecContext(ctx, "SELECT set_config('app.current_tenant_id', $1, false)", tenantID)
	if err != nil {
		conn.Close()
		return nil, ctx, err
	}
	ctx2 := context.WithValue(ctx, dbConnKey, conn)
	return conn, ctx2, nil
}

// querier abstracts *sql.DB and *sql.Conn so handlers can run against the
// pinned RLS connection when one is present.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dbFrom prefers the pinned connection from the context; falls back to the pool.
func dbFrom(ctx context.Context, db *sql.DB) querier {
	if !rlsEnabled() {
		return db
	}
	if v := ctx.Value(dbConnKey); v != nil {
		if c, ok := v.(*sql.Conn); ok {
			return c
		}
	}
	return db
}
