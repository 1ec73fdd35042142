package repositories

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that both *pgxpool.Pool and pgx.Tx implement.
// This allows repositories to work with both regular connections and
// transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

// txContextKey is the type for transaction context keys
type txContextKey string

const txKey txContextKey = "pgx_tx"

// txEnvelope carries the transaction together with the side effects that
// must wait for it to commit.
type txEnvelope struct {
	tx pgx.Tx

	mu    sync.Mutex
	after []func(context.Context)
}

// SetTx stores a transaction in the context
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, &txEnvelope{tx: tx})
}

// GetTx retrieves a transaction from the context.
// Returns nil if no transaction is present.
func GetTx(ctx context.Context) pgx.Tx {
	env, ok := ctx.Value(txKey).(*txEnvelope)
	if !ok {
		return nil
	}
	return env.tx
}

// DeferToCommit queues fn to run once the surrounding transaction commits.
// Outside a transaction it reports false and queues nothing; the caller
// runs fn inline. Repositories use this so broker fan-out never announces
// state a rollback can take back.
func DeferToCommit(ctx context.Context, fn func(context.Context)) bool {
	env, ok := ctx.Value(txKey).(*txEnvelope)
	if !ok {
		return false
	}
	env.mu.Lock()
	env.after = append(env.after, fn)
	env.mu.Unlock()
	return true
}

// FlushCommitted runs txCtx's queued functions in registration order,
// passing them ctx, which must not carry the finished transaction. Never
// calling it drops the queue, which is exactly right for a rollback.
func FlushCommitted(txCtx, ctx context.Context) {
	env, ok := txCtx.Value(txKey).(*txEnvelope)
	if !ok {
		return
	}
	env.mu.Lock()
	fns := env.after
	env.after = nil
	env.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}
