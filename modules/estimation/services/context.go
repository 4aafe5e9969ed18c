package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/configuration"
)

// inTx runs fn inside one transaction with the tenant bound to the context
// and the configured mutation timeout applied. A stalled transaction holds
// row locks over the whole sibling set, so it is aborted rather than held.
func inTx[T any](ctx context.Context, tenantID uuid.UUID, fn func(txCtx context.Context) (T, error)) (T, error) {
	var zero T

	// Join an ambient transaction when one is already open, so services can
	// call each other without nesting transactions.
	if composables.HasTx(ctx) {
		return fn(composables.WithTenantID(ctx, tenantID))
	}

	conf := configuration.Use()
	ctx, cancel := context.WithTimeout(ctx, conf.MutationTimeout)
	defer cancel()

	pool, err := composables.UsePool(ctx)
	if err != nil {
		return zero, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txCtx := composables.WithTx(ctx, tx)
	txCtx = composables.WithTenantID(txCtx, tenantID)
	if err := composables.ApplyTenantRLS(txCtx, tx); err != nil {
		return zero, err
	}

	out, err := fn(txCtx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, err
	}
	return out, nil
}

// withRetry re-runs fn when the transaction was aborted by the isolation
// layer. Each attempt recomputes its plan against fresh state; terminal
// errors pass through untouched. The final failed attempt surfaces as a
// retryable conflict for the caller.
func withRetry[T any](ctx context.Context, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero T
		last error
	)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryableError(err) {
			return zero, err
		}
		recordMutationRetry()
		last = err
	}
	return zero, mapPgError(last)
}

func isRetryableError(err error) bool {
	if isRetryablePgError(err) {
		return true
	}
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Retryable
}
