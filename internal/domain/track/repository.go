package track

import (
	"context"
	"time"
)

type TrackRepository interface {
	Create(ctx context.Context, track *Track) error
	// The lookups return (nil, nil) when no matching track exists; a
	// missing track is an ordinary branch of the reconciliation decision
	// table, not an error.
	GetByTradeNo(ctx context.Context, tradeNo string) (*Track, error)
	GetByOrderID(ctx context.Context, orderID uint) (*Track, error)
	GetByTrackID(ctx context.Context, trackID string) (*Track, error)
	// MarkUsed flips is_used for the given track id if it is still unused.
	// Returns true when this call consumed the track.
	MarkUsed(ctx context.Context, trackID string) (bool, error)
	// DeleteIfUnused removes the track for a trade number unless it has been
	// consumed. Used when an order is cancelled so a dead track is not
	// re-inquired forever.
	DeleteIfUnused(ctx context.Context, tradeNo string) error
	// ExpireOlderThan force-marks unused tracks older than the cutoff as used
	// without deleting them, keeping audit history while stopping the sweep
	// from re-inquiring ancient tracks. Returns the number of tracks expired.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteOlderThan removes tracks older than the cutoff. Runs on a later
	// schedule than ExpireOlderThan.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
