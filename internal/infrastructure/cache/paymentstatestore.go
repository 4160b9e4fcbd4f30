// Package cache provides Redis-backed short-lived state for the
// reconciliation engine.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"paysweep/internal/application/payment"
	"paysweep/internal/application/payment/gateway"
	"paysweep/internal/shared/biztime"
)

const (
	lastCheckPrefix   = "payment:last_check:"
	inquiryFailPrefix = "payment:inquiry_fail:"
	trackPrefix       = "payment:track:"
	processedPrefix   = "payment:processed:"
	heartbeatPrefix   = "payment:sweep:"

	// Rate-limit and failure-counter state outlives any single sweep but
	// must not survive a resolved order for long.
	checkStateTTL = time.Hour
	// Track ids only need to bridge the gap between redirect and durable
	// persistence.
	trackTTL = 5 * time.Minute
	// Processed markers answer duplicate notifications for a full day.
	processedTTL = 24 * time.Hour
	// Heartbeats must stay visible across the longest job interval.
	heartbeatTTL = 48 * time.Hour
)

// PaymentStateStore implements payment.StateStore on Redis. Every operation
// carries a TTL so abandoned orders leave no permanent residue.
type PaymentStateStore struct {
	client *redis.Client
}

func NewPaymentStateStore(client *redis.Client) *PaymentStateStore {
	return &PaymentStateStore{client: client}
}

var _ payment.StateStore = (*PaymentStateStore)(nil)

func (s *PaymentStateStore) LastCheckedAt(ctx context.Context, orderID uint) (time.Time, bool, error) {
	return s.getTime(ctx, lastCheckPrefix+formatID(orderID))
}

func (s *PaymentStateStore) MarkChecked(ctx context.Context, orderID uint) error {
	key := lastCheckPrefix + formatID(orderID)
	if err := s.client.Set(ctx, key, biztime.NowUTC().Unix(), checkStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark order checked: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) IncrFailCount(ctx context.Context, orderID uint) (int, error) {
	key := inquiryFailPrefix + formatID(orderID)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment fail count: %w", err)
	}
	// Refresh the TTL so the counter expires relative to the latest failure.
	if err := s.client.Expire(ctx, key, checkStateTTL).Err(); err != nil {
		return 0, fmt.Errorf("failed to set fail count ttl: %w", err)
	}
	return int(count), nil
}

func (s *PaymentStateStore) ResetFailCount(ctx context.Context, orderID uint) error {
	if err := s.client.Del(ctx, inquiryFailPrefix+formatID(orderID)).Err(); err != nil {
		return fmt.Errorf("failed to reset fail count: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) CacheTrackID(ctx context.Context, tradeNo, trackID string) error {
	if err := s.client.Set(ctx, trackPrefix+tradeNo, trackID, trackTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache track id: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) CachedTrackID(ctx context.Context, tradeNo string) (string, error) {
	val, err := s.client.Get(ctx, trackPrefix+tradeNo).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read cached track id: %w", err)
	}
	return val, nil
}

func (s *PaymentStateStore) ForgetTrackID(ctx context.Context, tradeNo string) error {
	if err := s.client.Del(ctx, trackPrefix+tradeNo).Err(); err != nil {
		return fmt.Errorf("failed to forget track id: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) MarkProcessed(ctx context.Context, tradeNo, trackID string, result *gateway.VerifiedPayment) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal verify result: %w", err)
	}
	key := processedPrefix + tradeNo + ":" + trackID
	if err := s.client.Set(ctx, key, data, processedTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark payment processed: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) ProcessedResult(ctx context.Context, tradeNo, trackID string) (*gateway.VerifiedPayment, bool, error) {
	key := processedPrefix + tradeNo + ":" + trackID
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read processed marker: %w", err)
	}

	var result gateway.VerifiedPayment
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal verify result: %w", err)
	}
	return &result, true, nil
}

func (s *PaymentStateStore) SetLastRun(ctx context.Context, variant string) error {
	key := heartbeatPrefix + variant + ":last_run"
	if err := s.client.Set(ctx, key, biztime.NowUTC().Unix(), heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set last run heartbeat: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) SetLastSuccess(ctx context.Context, variant string) error {
	key := heartbeatPrefix + variant + ":last_success"
	if err := s.client.Set(ctx, key, biztime.NowUTC().Unix(), heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set last success heartbeat: %w", err)
	}
	return nil
}

func (s *PaymentStateStore) LastRun(ctx context.Context, variant string) (time.Time, bool, error) {
	return s.getTime(ctx, heartbeatPrefix+variant+":last_run")
}

func (s *PaymentStateStore) LastSuccess(ctx context.Context, variant string) (time.Time, bool, error) {
	return s.getTime(ctx, heartbeatPrefix+variant+":last_success")
}

func (s *PaymentStateStore) getTime(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed timestamp at %s: %w", key, err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
