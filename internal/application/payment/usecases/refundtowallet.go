package usecases

import (
	"context"
	"fmt"

	"paysweep/internal/application/payment"
	"paysweep/internal/domain/order"
	"paysweep/internal/domain/track"
	"paysweep/internal/domain/user"
	"paysweep/internal/shared/goroutine"
	"paysweep/internal/shared/logger"
)

// Refund reasons recorded with every forced wallet credit.
const (
	RefundReasonInquiryFailed = "inquiry_failed_max_retries"
	RefundReasonVerifyFailed  = "verify_failed"
	RefundReasonUnknownStatus = "unknown_status"
)

// OperatorNotifier alerts a human about money moved out-of-band. Optional
// dependency; a nil notifier disables alerting.
type OperatorNotifier interface {
	NotifyForcedRefund(ctx context.Context, alert RefundAlert) error
	NotifySweepUnhealthy(ctx context.Context, variant, detail string) error
}

// TxManager runs a function inside a database transaction. Satisfied by
// db.TransactionManager.
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RefundAlert describes a forced refund for operator visibility.
type RefundAlert struct {
	TradeNo    string
	UserID     uint
	Amount     int64
	Reason     string
	NewBalance int64
}

// RefundToWalletUseCase credits an order's total amount back to the user's
// wallet and marks the order refunded, as one atomic unit. The wallet row is
// locked only for the duration of the local commit; no gateway call happens
// under the lock.
type RefundToWalletUseCase struct {
	orderRepo order.OrderRepository
	userRepo  user.UserRepository
	trackRepo track.TrackRepository
	state     payment.StateStore
	tm        TxManager
	notifier  OperatorNotifier
	logger    logger.Interface
}

func NewRefundToWalletUseCase(
	orderRepo order.OrderRepository,
	userRepo user.UserRepository,
	trackRepo track.TrackRepository,
	state payment.StateStore,
	tm TxManager,
	logger logger.Interface,
) *RefundToWalletUseCase {
	return &RefundToWalletUseCase{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		trackRepo: trackRepo,
		state:     state,
		tm:        tm,
		logger:    logger,
	}
}

// SetNotifier sets the operator notifier (optional dependency injection)
func (uc *RefundToWalletUseCase) SetNotifier(n OperatorNotifier) {
	uc.notifier = n
}

// Execute refunds the order to the user's wallet. Any failure rolls the
// whole transaction back: no partial credit, no partial status change.
func (uc *RefundToWalletUseCase) Execute(ctx context.Context, ord *order.Order, trackID, reason string) error {
	var newBalance int64

	err := uc.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		usr, err := uc.userRepo.GetByIDForUpdate(txCtx, ord.UserID())
		if err != nil {
			return fmt.Errorf("failed to lock user %d: %w", ord.UserID(), err)
		}

		oldBalance := usr.Balance()
		if err := usr.CreditBalance(ord.TotalAmount()); err != nil {
			return err
		}
		if err := uc.userRepo.Update(txCtx, usr); err != nil {
			return fmt.Errorf("failed to save wallet balance: %w", err)
		}

		// The durable row must still be in the status this sweep loaded;
		// a concurrent sweep or verify may have resolved the order already,
		// and crediting on top of that would mint money.
		prior := ord.Status()
		if err := ord.RefundToWallet(); err != nil {
			return err
		}
		moved, err := uc.orderRepo.Transition(txCtx, ord, prior)
		if err != nil {
			return fmt.Errorf("failed to save refunded order: %w", err)
		}
		if !moved {
			return fmt.Errorf("order %s was resolved by a concurrent writer, refund aborted", ord.TradeNo())
		}

		if trackID != "" {
			if _, err := uc.trackRepo.MarkUsed(txCtx, trackID); err != nil {
				return fmt.Errorf("failed to mark track used: %w", err)
			}
		}

		newBalance = usr.Balance()

		uc.logger.Infow("order refunded to wallet",
			"order_id", ord.ID(),
			"trade_no", ord.TradeNo(),
			"track_id", trackID,
			"user_id", usr.ID(),
			"amount", ord.TotalAmount(),
			"old_balance", oldBalance,
			"new_balance", newBalance,
			"reason", reason,
		)
		return nil
	})
	if err != nil {
		uc.logger.Errorw("refund to wallet failed",
			"order_id", ord.ID(),
			"trade_no", ord.TradeNo(),
			"track_id", trackID,
			"reason", reason,
			"error", err,
		)
		return err
	}

	// Cache cleanup is best-effort; the durable track row is already marked
	// used.
	if err := uc.state.ForgetTrackID(ctx, ord.TradeNo()); err != nil {
		uc.logger.Warnw("failed to clear cached track id", "trade_no", ord.TradeNo(), "error", err)
	}

	if uc.notifier != nil {
		alert := RefundAlert{
			TradeNo:    ord.TradeNo(),
			UserID:     ord.UserID(),
			Amount:     ord.TotalAmount(),
			Reason:     reason,
			NewBalance: newBalance,
		}
		goroutine.SafeGo(uc.logger, "refund-alert", func() {
			if err := uc.notifier.NotifyForcedRefund(context.Background(), alert); err != nil {
				uc.logger.Warnw("failed to send refund alert", "trade_no", alert.TradeNo, "error", err)
			}
		})
	}

	return nil
}
