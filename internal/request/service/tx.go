package service

import "context"

// Tx provides a transactional boundary around a ledger mutation and its
// audit outbox record. Implementations may wrap a database transaction
// or, in-memory, run the function directly.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// passthroughTx backs the memory stores, which have no transaction to
// join; both writes still share the operation's outcome.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
