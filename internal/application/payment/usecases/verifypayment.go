package usecases

import (
	"context"
	"fmt"

	"paysweep/internal/application/payment"
	"paysweep/internal/application/payment/gateway"
	"paysweep/internal/domain/order"
	"paysweep/internal/domain/track"
	apperrors "paysweep/internal/shared/errors"
	"paysweep/internal/shared/logger"
)

// NotifyParams are the fields the gateway callback (or the engine acting on
// its behalf) supplies to finalize a payment.
type NotifyParams struct {
	TradeNo string
	TrackID string
	Success int
}

// VerifyPaymentUseCase finalizes a payment at the gateway and marks the
// order paid. It is idempotent per (tradeNo, trackID): a duplicate
// invocation is answered from the cached result without a second gateway
// call or a second mutation.
type VerifyPaymentUseCase struct {
	orderRepo order.OrderRepository
	trackRepo track.TrackRepository
	state     payment.StateStore
	gw        gateway.PaymentGateway
	logger    logger.Interface
}

func NewVerifyPaymentUseCase(
	orderRepo order.OrderRepository,
	trackRepo track.TrackRepository,
	state payment.StateStore,
	gw gateway.PaymentGateway,
	logger logger.Interface,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		orderRepo: orderRepo,
		trackRepo: trackRepo,
		state:     state,
		gw:        gw,
		logger:    logger,
	}
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, params NotifyParams) (*gateway.VerifiedPayment, error) {
	if params.TradeNo == "" || params.TrackID == "" {
		return nil, apperrors.NewValidationError("trade number and track id are required")
	}

	// Duplicate notifications are answered from cache before any work.
	if cached, ok, err := uc.state.ProcessedResult(ctx, params.TradeNo, params.TrackID); err != nil {
		uc.logger.Warnw("failed to read processed marker", "trade_no", params.TradeNo, "error", err)
	} else if ok {
		uc.logger.Infow("payment already processed", "trade_no", params.TradeNo, "track_id", params.TrackID)
		return cached, nil
	}

	if params.Success != 1 {
		return nil, apperrors.NewValidationError("transaction was not reported successful by the gateway")
	}

	ord, err := uc.orderRepo.GetByTradeNo(ctx, params.TradeNo)
	if err != nil {
		uc.logger.Warnw("order not found for notification", "trade_no", params.TradeNo, "error", err)
		return nil, err
	}

	// A cached expected track id that disagrees with the supplied one is a
	// trust violation, not a retryable condition.
	if cachedTrack, err := uc.state.CachedTrackID(ctx, params.TradeNo); err != nil {
		uc.logger.Warnw("failed to read cached track id", "trade_no", params.TradeNo, "error", err)
	} else if cachedTrack != "" && cachedTrack != params.TrackID {
		uc.logger.Errorw("track id mismatch",
			"trade_no", params.TradeNo,
			"cached", cachedTrack,
			"received", params.TrackID,
		)
		return nil, apperrors.NewValidationError("track id mismatch")
	}

	// An order paid via wallet balance alone never touched the gateway.
	if ord.IsBalanceOnly() {
		return uc.finalize(ctx, ord, params, &gateway.VerifiedPayment{
			TradeNo: params.TradeNo,
			TrackID: params.TrackID,
			Amount:  ord.BalanceAmount(),
		})
	}

	if ord.Status().IsPaid() {
		uc.logger.Infow("order already paid", "trade_no", params.TradeNo)
		result := &gateway.VerifiedPayment{
			TradeNo: params.TradeNo,
			TrackID: params.TrackID,
			Amount:  ord.TotalAmount(),
		}
		if err := uc.state.MarkProcessed(ctx, params.TradeNo, params.TrackID, result); err != nil {
			uc.logger.Warnw("failed to write processed marker", "trade_no", params.TradeNo, "error", err)
		}
		return result, nil
	}

	verified, err := uc.gw.Verify(ctx, params.TrackID, ord.TotalAmount())
	if err != nil {
		uc.logger.Errorw("gateway verify failed",
			"trade_no", params.TradeNo,
			"track_id", params.TrackID,
			"error", err,
		)
		return nil, err
	}
	verified.TradeNo = params.TradeNo

	return uc.finalize(ctx, ord, params, verified)
}

func (uc *VerifyPaymentUseCase) finalize(ctx context.Context, ord *order.Order, params NotifyParams, result *gateway.VerifiedPayment) (*gateway.VerifiedPayment, error) {
	// Guard the paid write on the status this request loaded, so a refund
	// that landed in between cannot be overwritten back to paid.
	prior := ord.Status()
	if err := ord.MarkPaid(); err != nil {
		return nil, err
	}
	moved, err := uc.orderRepo.Transition(ctx, ord, prior)
	if err != nil {
		uc.logger.Errorw("failed to save paid order", "trade_no", ord.TradeNo(), "error", err)
		return nil, err
	}
	if !moved {
		uc.logger.Errorw("order was resolved concurrently, paid write rejected",
			"trade_no", ord.TradeNo(),
			"track_id", params.TrackID,
		)
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order %s was resolved by a concurrent writer", ord.TradeNo()))
	}

	if !ord.IsBalanceOnly() {
		if _, err := uc.trackRepo.MarkUsed(ctx, params.TrackID); err != nil {
			uc.logger.Warnw("failed to mark track used after verify",
				"trade_no", ord.TradeNo(),
				"track_id", params.TrackID,
				"error", err,
			)
		}
	}

	// The marker is written only after the order mutation committed, so a
	// crash in between is retried rather than silently swallowed.
	if err := uc.state.MarkProcessed(ctx, params.TradeNo, params.TrackID, result); err != nil {
		uc.logger.Warnw("failed to write processed marker", "trade_no", params.TradeNo, "error", err)
	}
	if err := uc.state.ForgetTrackID(ctx, params.TradeNo); err != nil {
		uc.logger.Warnw("failed to clear cached track id", "trade_no", params.TradeNo, "error", err)
	}

	uc.logger.Infow("order verified and paid",
		"order_id", ord.ID(),
		"trade_no", ord.TradeNo(),
		"track_id", params.TrackID,
		"amount", result.Amount,
	)
	return result, nil
}
