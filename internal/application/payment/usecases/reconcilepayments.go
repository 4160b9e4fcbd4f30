package usecases

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"paysweep/internal/application/payment"
	"paysweep/internal/application/payment/gateway"
	"paysweep/internal/domain/order"
	vo "paysweep/internal/domain/order/valueobjects"
	"paysweep/internal/domain/track"
	"paysweep/internal/shared/biztime"
	sharedConfig "paysweep/internal/shared/config"
	"paysweep/internal/shared/logger"
)

// SweepParams are the thresholds one reconciliation run works with. The
// scheduler supplies different parameter sets for the fast, deep and audit
// variants.
type SweepParams struct {
	RefundAfter     time.Duration // minimum order age before money may be moved out-of-band
	CheckInterval   time.Duration // minimum gap between gateway inquiries per order
	ExpireAfter     time.Duration // order age after which a still-uncharged order is cancelled
	LookBack        time.Duration // candidate window, counted back from now
	MaxInquiryFails int
	CheckCancelled  bool // include cancelled orders (recovery sweep)
	CheckExpired    bool // re-check already refunded orders (audit sweep)
}

// ParamsFromConfig converts the configured minute/hour values into a
// SweepParams.
func ParamsFromConfig(cfg sharedConfig.SweepConfig) SweepParams {
	return SweepParams{
		RefundAfter:     time.Duration(cfg.RefundAfterMinutes) * time.Minute,
		CheckInterval:   time.Duration(cfg.CheckIntervalMinutes) * time.Minute,
		ExpireAfter:     time.Duration(cfg.ExpireAfterMinutes) * time.Minute,
		LookBack:        time.Duration(cfg.LookBackHours) * time.Hour,
		MaxInquiryFails: cfg.MaxInquiryFails,
		CheckCancelled:  cfg.CheckCancelled,
		CheckExpired:    cfg.CheckExpired,
	}
}

// SweepStats are the per-run outcome counters reported at completion. They
// carry no correctness obligation but are required output for monitoring.
type SweepStats struct {
	Checked   int
	Verified  int
	Refunded  int
	Expired   int
	Cancelled int
	Failed    int
	Skipped   int
}

// ReconcilePaymentsUseCase is the sweep: it selects candidate orders,
// resolves each order's track id, rate-limits gateway inquiries, interprets
// the returned status against the decision table and drives the resulting
// order/wallet transition. Failures are isolated per order; one bad candidate
// never aborts the rest of the run.
type ReconcilePaymentsUseCase struct {
	orderRepo order.OrderRepository
	trackRepo track.TrackRepository
	state     payment.StateStore
	gw        gateway.PaymentGateway
	refundUC  *RefundToWalletUseCase
	verifyUC  *VerifyPaymentUseCase
	logger    logger.Interface
}

func NewReconcilePaymentsUseCase(
	orderRepo order.OrderRepository,
	trackRepo track.TrackRepository,
	state payment.StateStore,
	gw gateway.PaymentGateway,
	refundUC *RefundToWalletUseCase,
	verifyUC *VerifyPaymentUseCase,
	logger logger.Interface,
) *ReconcilePaymentsUseCase {
	return &ReconcilePaymentsUseCase{
		orderRepo: orderRepo,
		trackRepo: trackRepo,
		state:     state,
		gw:        gw,
		refundUC:  refundUC,
		verifyUC:  verifyUC,
		logger:    logger,
	}
}

func (uc *ReconcilePaymentsUseCase) Execute(ctx context.Context, params SweepParams) (SweepStats, error) {
	stats := SweepStats{}

	statuses := []vo.OrderStatus{vo.OrderStatusPending}
	if params.CheckCancelled {
		statuses = append(statuses, vo.OrderStatusCancelled)
	}
	if params.CheckExpired {
		statuses = append(statuses, vo.OrderStatusRefundedToWallet)
	}

	since := biztime.NowUTC().Add(-params.LookBack)
	candidates, err := uc.orderRepo.ListByStatusesCreatedSince(ctx, statuses, since)
	if err != nil {
		return stats, fmt.Errorf("failed to list candidate orders: %w", err)
	}

	uc.logger.Infow("reconciliation sweep started",
		"candidates", len(candidates),
		"look_back", params.LookBack,
		"check_cancelled", params.CheckCancelled,
	)

	for _, ord := range candidates {
		// The scheduler may cancel a sweep between iterations; no
		// cross-order transaction exists, so stopping here is always safe.
		select {
		case <-ctx.Done():
			uc.logStats("reconciliation sweep cancelled", stats)
			return stats, ctx.Err()
		default:
		}

		stats.Checked++
		uc.processOrder(ctx, ord, params, &stats)
	}

	uc.logStats("reconciliation sweep completed", stats)
	return stats, nil
}

// processOrder runs the per-candidate algorithm with panic isolation.
func (uc *ReconcilePaymentsUseCase) processOrder(ctx context.Context, ord *order.Order, params SweepParams, stats *SweepStats) {
	trackID := ""
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Errorw("panic while reconciling order",
				"order_id", ord.ID(),
				"trade_no", ord.TradeNo(),
				"track_id", trackID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			stats.Failed++
		}
	}()

	now := biztime.NowUTC()
	age := ord.Age(now)

	trackID = uc.resolveTrackID(ctx, ord)
	if trackID == "" {
		stats.Skipped++
		// An untracked pending order past the expiry age was never charged.
		if ord.Status().IsPending() && age >= params.ExpireAfter {
			if uc.expireOrder(ctx, ord) {
				stats.Expired++
			} else {
				stats.Failed++
			}
		}
		return
	}

	if last, ok, err := uc.state.LastCheckedAt(ctx, ord.ID()); err != nil {
		uc.logger.Warnw("failed to read last check time", "order_id", ord.ID(), "error", err)
	} else if ok && now.Sub(last) < params.CheckInterval {
		stats.Skipped++
		return
	}

	// Recorded before the gateway call so a crash mid-check still counts as
	// checked and cannot cause a tight retry storm.
	if err := uc.state.MarkChecked(ctx, ord.ID()); err != nil {
		uc.logger.Warnw("failed to record check time", "order_id", ord.ID(), "error", err)
	}

	result, err := uc.gw.Inquiry(ctx, trackID)
	if err != nil {
		uc.handleInquiryFailure(ctx, ord, trackID, age, params, stats, err)
		return
	}

	if err := uc.state.ResetFailCount(ctx, ord.ID()); err != nil {
		uc.logger.Warnw("failed to reset fail count", "order_id", ord.ID(), "error", err)
	}

	uc.applyDecision(ctx, ord, trackID, result, age, params, stats)
}

// handleInquiryFailure counts consecutive transport failures and forces a
// refund only once both the failure and age thresholds are met. Until then
// the order stays pending, giving the gateway time to recover before the
// engine assumes money was lost.
func (uc *ReconcilePaymentsUseCase) handleInquiryFailure(ctx context.Context, ord *order.Order, trackID string, age time.Duration, params SweepParams, stats *SweepStats, inquiryErr error) {
	failCount, err := uc.state.IncrFailCount(ctx, ord.ID())
	if err != nil {
		uc.logger.Warnw("failed to count inquiry failure", "order_id", ord.ID(), "error", err)
	}

	uc.logger.Warnw("gateway inquiry failed",
		"order_id", ord.ID(),
		"trade_no", ord.TradeNo(),
		"track_id", trackID,
		"attempt", failCount,
		"max_attempts", params.MaxInquiryFails,
		"error", inquiryErr,
	)

	if failCount >= params.MaxInquiryFails && age >= params.RefundAfter {
		if err := uc.refundUC.Execute(ctx, ord, trackID, RefundReasonInquiryFailed); err != nil {
			stats.Failed++
			return
		}
		if err := uc.state.ResetFailCount(ctx, ord.ID()); err != nil {
			uc.logger.Warnw("failed to reset fail count after refund", "order_id", ord.ID(), "error", err)
		}
		stats.Refunded++
		return
	}

	stats.Failed++
}

// applyDecision interprets a well-formed inquiry result. The critical rule:
// codes -1, 3 and 4 mean no money was ever captured, so they may cancel the
// order but must never trigger a wallet refund.
func (uc *ReconcilePaymentsUseCase) applyDecision(ctx context.Context, ord *order.Order, trackID string, result *gateway.InquiryResult, age time.Duration, params SweepParams, stats *SweepStats) {
	switch result.Status {
	case gateway.StatusPaidVerified, gateway.StatusPaidNotVerified:
		if ord.Status().IsPaid() {
			uc.logger.Debugw("order already paid", "trade_no", ord.TradeNo())
			return
		}
		if uc.attemptVerify(ctx, ord, trackID) {
			stats.Verified++
			return
		}
		// Inquiry says paid but finalization is impossible. Give the
		// gateway's own finalization a grace period before moving money
		// out-of-band.
		if age >= params.RefundAfter {
			if err := uc.refundUC.Execute(ctx, ord, trackID, RefundReasonVerifyFailed); err != nil {
				stats.Failed++
				return
			}
			stats.Refunded++
		} else {
			uc.logger.Infow("verify failed, waiting before refund",
				"trade_no", ord.TradeNo(),
				"age", age,
				"refund_after", params.RefundAfter,
			)
		}

	case gateway.StatusNotInitiated:
		if params.CheckCancelled && ord.Status().IsPending() {
			uc.cancelOrder(ctx, ord, stats)
		} else {
			stats.Skipped++
		}

	case gateway.StatusCancelledByUser, gateway.StatusFailed:
		if ord.Status().IsPending() {
			uc.cancelOrder(ctx, ord, stats)
		} else {
			stats.Skipped++
		}

	case gateway.StatusPending:
		// A still-pending gateway transaction has by definition not captured
		// funds; treat an old one the same as never charged.
		if ord.Status().IsPending() && age >= params.ExpireAfter {
			if uc.expireOrder(ctx, ord) {
				stats.Expired++
			} else {
				stats.Failed++
			}
		}

	default:
		uc.logger.Warnw("unknown gateway status",
			"trade_no", ord.TradeNo(),
			"track_id", trackID,
			"status", result.Status,
		)
		// Conservative fallback: an unrecognized code after the engine has
		// had enough chances to resolve it otherwise is assumed to mean
		// captured funds the engine cannot classify.
		if age >= params.RefundAfter {
			if err := uc.refundUC.Execute(ctx, ord, trackID, RefundReasonUnknownStatus); err != nil {
				stats.Failed++
				return
			}
			stats.Refunded++
		}
	}
}

// resolveTrackID looks the track up by trade number first, then by order id,
// then in the short-TTL cache covering the gap between gateway redirect and
// durable persistence. Empty string means the order is untracked.
func (uc *ReconcilePaymentsUseCase) resolveTrackID(ctx context.Context, ord *order.Order) string {
	if t, err := uc.trackRepo.GetByTradeNo(ctx, ord.TradeNo()); err != nil {
		uc.logger.Warnw("failed to look up track by trade number", "trade_no", ord.TradeNo(), "error", err)
	} else if t != nil {
		return t.TrackID()
	}

	if ord.ID() > 0 {
		if t, err := uc.trackRepo.GetByOrderID(ctx, ord.ID()); err != nil {
			uc.logger.Warnw("failed to look up track by order id", "order_id", ord.ID(), "error", err)
		} else if t != nil {
			return t.TrackID()
		}
	}

	cached, err := uc.state.CachedTrackID(ctx, ord.TradeNo())
	if err != nil {
		uc.logger.Warnw("failed to read cached track id", "trade_no", ord.TradeNo(), "error", err)
		return ""
	}
	return cached
}

func (uc *ReconcilePaymentsUseCase) attemptVerify(ctx context.Context, ord *order.Order, trackID string) bool {
	_, err := uc.verifyUC.Execute(ctx, NotifyParams{
		TradeNo: ord.TradeNo(),
		TrackID: trackID,
		Success: 1,
	})
	if err != nil {
		uc.logger.Warnw("verify attempt failed in sweep",
			"order_id", ord.ID(),
			"trade_no", ord.TradeNo(),
			"track_id", trackID,
			"error", err,
		)
		return false
	}
	return true
}

// cancelOrder closes an order the gateway reports as never charged and
// removes its track if still unused.
func (uc *ReconcilePaymentsUseCase) cancelOrder(ctx context.Context, ord *order.Order, stats *SweepStats) {
	if err := ord.Cancel(); err != nil {
		uc.logger.Errorw("failed to cancel order", "trade_no", ord.TradeNo(), "error", err)
		stats.Failed++
		return
	}
	moved, err := uc.orderRepo.Transition(ctx, ord, vo.OrderStatusPending)
	if err != nil {
		uc.logger.Errorw("failed to save cancelled order", "trade_no", ord.TradeNo(), "error", err)
		stats.Failed++
		return
	}
	if !moved {
		uc.logger.Infow("order was resolved concurrently, cancel skipped", "trade_no", ord.TradeNo())
		stats.Skipped++
		return
	}
	if err := uc.trackRepo.DeleteIfUnused(ctx, ord.TradeNo()); err != nil {
		uc.logger.Warnw("failed to delete unused track", "trade_no", ord.TradeNo(), "error", err)
	}
	uc.logger.Infow("order cancelled, no funds were captured", "trade_no", ord.TradeNo())
	stats.Cancelled++
}

func (uc *ReconcilePaymentsUseCase) expireOrder(ctx context.Context, ord *order.Order) bool {
	if err := ord.Cancel(); err != nil {
		uc.logger.Errorw("failed to expire order", "trade_no", ord.TradeNo(), "error", err)
		return false
	}
	moved, err := uc.orderRepo.Transition(ctx, ord, vo.OrderStatusPending)
	if err != nil {
		uc.logger.Errorw("failed to save expired order", "trade_no", ord.TradeNo(), "error", err)
		return false
	}
	if !moved {
		uc.logger.Infow("order was resolved concurrently, expire skipped", "trade_no", ord.TradeNo())
		return false
	}
	if err := uc.state.ForgetTrackID(ctx, ord.TradeNo()); err != nil {
		uc.logger.Warnw("failed to clear cached track id", "trade_no", ord.TradeNo(), "error", err)
	}
	uc.logger.Infow("stale pending order expired", "trade_no", ord.TradeNo())
	return true
}

func (uc *ReconcilePaymentsUseCase) logStats(msg string, stats SweepStats) {
	uc.logger.Infow(msg,
		"checked", stats.Checked,
		"verified", stats.Verified,
		"refunded", stats.Refunded,
		"expired", stats.Expired,
		"cancelled", stats.Cancelled,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
}
