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

// InitiateResult is handed back to the checkout path for the user redirect.
type InitiateResult struct {
	TradeNo     string
	TrackID     string
	RedirectURL string
}

// InitiatePaymentUseCase starts a payment at the gateway for a pending
// order. The track id is persisted before the redirect URL is returned, and
// additionally cached for a short fallback window in case durable
// persistence lags behind the user's redirect.
type InitiatePaymentUseCase struct {
	orderRepo order.OrderRepository
	trackRepo track.TrackRepository
	state     payment.StateStore
	gw        gateway.PaymentGateway
	logger    logger.Interface
}

func NewInitiatePaymentUseCase(
	orderRepo order.OrderRepository,
	trackRepo track.TrackRepository,
	state payment.StateStore,
	gw gateway.PaymentGateway,
	logger logger.Interface,
) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{
		orderRepo: orderRepo,
		trackRepo: trackRepo,
		state:     state,
		gw:        gw,
		logger:    logger,
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, tradeNo string) (*InitiateResult, error) {
	ord, err := uc.orderRepo.GetByTradeNo(ctx, tradeNo)
	if err != nil {
		return nil, err
	}
	if !ord.Status().IsPending() {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order %s is not payable with status %s", tradeNo, ord.Status()))
	}

	session, err := uc.gw.Request(ctx, gateway.PaymentRequest{
		TradeNo:     ord.TradeNo(),
		Amount:      ord.TotalAmount(),
		Description: fmt.Sprintf("payment for order %s", ord.TradeNo()),
	})
	if err != nil {
		uc.logger.Errorw("gateway payment request failed", "trade_no", tradeNo, "error", err)
		return nil, err
	}

	trk, err := track.NewTrack(session.TrackID, ord.TradeNo(), ord.ID())
	if err != nil {
		return nil, err
	}
	if err := uc.trackRepo.Create(ctx, trk); err != nil {
		uc.logger.Errorw("failed to persist payment track",
			"trade_no", tradeNo,
			"track_id", session.TrackID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to persist payment track: %w", err)
	}

	if err := uc.state.CacheTrackID(ctx, ord.TradeNo(), session.TrackID); err != nil {
		uc.logger.Warnw("failed to cache track id", "trade_no", tradeNo, "error", err)
	}

	uc.logger.Infow("payment initiated",
		"trade_no", ord.TradeNo(),
		"track_id", session.TrackID,
		"amount", ord.TotalAmount(),
	)

	return &InitiateResult{
		TradeNo:     ord.TradeNo(),
		TrackID:     session.TrackID,
		RedirectURL: session.RedirectURL,
	}, nil
}
