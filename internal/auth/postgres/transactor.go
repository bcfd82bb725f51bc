// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Veril Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Serialization conflicts are retried a few times with backoff before the
// error propagates.
const (
	txMaxRetries   = 3
	txRetryBackoff = 10 * time.Millisecond
)

// Transactor implements auth.Transactor using serializable PostgreSQL
// transactions. It stores the active pgx.Tx in context so repository methods
// called from fn participate in the same transaction.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor backed by the given pool.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

// InTx begins a serializable transaction, stores it in context, and calls fn.
// If fn returns nil the transaction is committed, otherwise it is rolled
// back. Serialization failures restart fn in a fresh transaction, so fn must
// be safe to run more than once.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewExponential(txRetryBackoff))

	//nolint:wrapcheck // retry.Do returns fn's error unchanged once retries are exhausted
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := t.runTx(ctx, fn)
		if isSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (t *Transactor) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return err
		}
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// isSerializationFailure reports whether err is a PostgreSQL serialization
// or deadlock failure, both of which are safe to retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
