package download

import (
	"context"
	"errors"
	"math"
	"net"
	"time"

	"github.com/vmunix/resonarr/pkg/catalog"
)

// Backoff defaults; attempts come from config.
const (
	defaultRetryAttempts = 3
	retryCooldown        = 2 * time.Second
	retryExponent        = 2.0
)

// retryPolicy waits cooldown * exponent^tries between attempts.
type retryPolicy struct {
	attempts int
	cooldown time.Duration
	exponent float64
}

func newRetryPolicy(attempts int) retryPolicy {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return retryPolicy{attempts: attempts, cooldown: retryCooldown, exponent: retryExponent}
}

// wait sleeps out the backoff for the given zero-based try, or returns
// early with the context error on cancellation.
func (p retryPolicy) wait(ctx context.Context, tries int) error {
	d := time.Duration(float64(p.cooldown) * math.Pow(p.exponent, float64(tries)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryable reports whether another attempt could succeed: the remote
// being down, rate limiting, and network timeouts qualify. Auth errors
// do not; the catalog client already retries those once internally.
func retryable(err error) bool {
	if errors.Is(err, catalog.ErrUnavailable) || errors.Is(err, catalog.ErrRateLimited) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
