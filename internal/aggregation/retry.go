package aggregation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes that abort a transaction without it being at fault.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// isRetryable reports whether err is a transaction conflict that a fresh
// attempt of the same transaction can succeed past.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// newBackOff returns the retry schedule for one submission: exponential with
// jitter starting at base, at most attempts-1 retries, cut short by ctx.
func newBackOff(ctx context.Context, base time.Duration, attempts int) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = 16 * base
	b.MaxElapsedTime = 0
	b.Reset()

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
