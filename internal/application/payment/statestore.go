// Package payment defines the application-level contracts the reconciliation
// engine depends on: the gateway client interface lives in the gateway
// subpackage, the short-TTL keyed state store here, and the usecases in the
// usecases subpackage.
package payment

import (
	"context"
	"time"

	"paysweep/internal/application/payment/gateway"
)

// StateStore is the short-lived keyed store backing rate limiting, failure
// counting, the track-id fallback cache and verify idempotency markers. It is
// best-effort: a missed throttle or undercounted failure is an inefficiency,
// not a correctness violation, because order transitions stay idempotent.
// Passed in explicitly so tests can inject a fake and assert keys and TTLs.
type StateStore interface {
	// LastCheckedAt returns when the order was last inquired, if known.
	LastCheckedAt(ctx context.Context, orderID uint) (time.Time, bool, error)
	// MarkChecked records the inquiry timestamp before the gateway call, so
	// a crash mid-check still counts as checked.
	MarkChecked(ctx context.Context, orderID uint) error

	// IncrFailCount bumps the consecutive inquiry-failure counter and
	// returns the new count.
	IncrFailCount(ctx context.Context, orderID uint) (int, error)
	ResetFailCount(ctx context.Context, orderID uint) error

	// CacheTrackID stores the gateway track id under the trade number for
	// the fallback window between redirect and durable persistence.
	CacheTrackID(ctx context.Context, tradeNo, trackID string) error
	// CachedTrackID returns the cached track id, or "" when absent.
	CachedTrackID(ctx context.Context, tradeNo string) (string, error)
	ForgetTrackID(ctx context.Context, tradeNo string) error

	// MarkProcessed records the verify result for a (tradeNo, trackID) pair
	// so a duplicate notification is answered from cache.
	MarkProcessed(ctx context.Context, tradeNo, trackID string, result *gateway.VerifiedPayment) error
	// ProcessedResult returns the cached verify result if the pair was
	// already processed.
	ProcessedResult(ctx context.Context, tradeNo, trackID string) (*gateway.VerifiedPayment, bool, error)

	// Heartbeat bookkeeping for the external health check.
	SetLastRun(ctx context.Context, variant string) error
	SetLastSuccess(ctx context.Context, variant string) error
	LastRun(ctx context.Context, variant string) (time.Time, bool, error)
	LastSuccess(ctx context.Context, variant string) (time.Time, bool, error)
}
