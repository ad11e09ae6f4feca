package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/mediacatalog/internal/logging"
)

// isConnectionError reports whether err looks like a lost/broken connection
// rather than a query-semantic failure (§7 "Transient I/O").
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{
		"connection refused", "connection reset", "broken pipe",
		"bad connection", "database is closed", "disk I/O error",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// isBusyError reports a SQLITE_BUSY-style contention error.
func isBusyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// withRetryOnce implements the §7 local-recovery policy for transient I/O:
// retry exactly once with a fresh connection, then surface. cenkalti/backoff
// provides the single fixed-interval retry so this doesn't hand-roll a
// sleep loop.
func withRetryOnce(ctx context.Context, op func() error) error {
	attempt := 0
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1)
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isConnectionError(err) && !isBusyError(err) {
			return backoff.Permanent(err)
		}
		if attempt > 1 {
			logging.Warn().Err(err).Msg("transient database error persisted after one retry")
			return backoff.Permanent(fmt.Errorf("transient database error after retry: %w", err))
		}
		logging.Warn().Err(err).Msg("transient database error, retrying once with a fresh connection")
		return err
	}, backoff.WithContext(policy, ctx))
}
