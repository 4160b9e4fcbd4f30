package order

import (
	"fmt"
	"time"

	vo "paysweep/internal/domain/order/valueobjects"
	"paysweep/internal/shared/biztime"
)

// Order is a locally recorded payment order. Amounts are stored in the
// smallest currency unit; totalAmount is the part to be captured by the
// gateway, balanceAmount the part already covered by the user's wallet.
type Order struct {
	id            uint
	tradeNo       string
	userID        uint
	totalAmount   int64
	balanceAmount int64
	status        vo.OrderStatus

	paidAt    *time.Time
	createdAt time.Time
	updatedAt time.Time
}

func NewOrder(tradeNo string, userID uint, totalAmount, balanceAmount int64) (*Order, error) {
	if tradeNo == "" {
		return nil, fmt.Errorf("trade number is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if totalAmount < 0 || balanceAmount < 0 {
		return nil, fmt.Errorf("amounts must not be negative")
	}

	now := biztime.NowUTC()
	return &Order{
		tradeNo:       tradeNo,
		userID:        userID,
		totalAmount:   totalAmount,
		balanceAmount: balanceAmount,
		status:        vo.OrderStatusPending,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// MarkPaid finalizes the order after a successful gateway verify. It is
// allowed from pending and, for the recovery sweep, from cancelled; a second
// call on an already paid order is a no-op.
func (o *Order) MarkPaid() error {
	if o.status == vo.OrderStatusPaid {
		return nil
	}
	if o.status == vo.OrderStatusRefundedToWallet {
		return fmt.Errorf("cannot mark order %s as paid: already refunded to wallet", o.tradeNo)
	}

	now := biztime.NowUTC()
	o.status = vo.OrderStatusPaid
	o.paidAt = &now
	o.updatedAt = now
	return nil
}

// Cancel closes an order for which no money was ever captured. Only pending
// orders can be cancelled.
func (o *Order) Cancel() error {
	if o.status != vo.OrderStatusPending {
		return fmt.Errorf("cannot cancel order %s with status %s", o.tradeNo, o.status)
	}
	o.status = vo.OrderStatusCancelled
	o.updatedAt = biztime.NowUTC()
	return nil
}

// RefundToWallet marks the order as resolved by crediting the user's wallet.
// Allowed from pending and cancelled; paid and refunded are mutually
// exclusive terminals, so both reject it.
func (o *Order) RefundToWallet() error {
	if o.status == vo.OrderStatusPaid {
		return fmt.Errorf("cannot refund order %s: already paid", o.tradeNo)
	}
	if o.status == vo.OrderStatusRefundedToWallet {
		return fmt.Errorf("cannot refund order %s: already refunded", o.tradeNo)
	}
	o.status = vo.OrderStatusRefundedToWallet
	o.updatedAt = biztime.NowUTC()
	return nil
}

// Age returns how long ago the order was created.
func (o *Order) Age(now time.Time) time.Duration {
	return now.Sub(o.createdAt)
}

// IsBalanceOnly reports whether the order was fully covered by wallet
// balance and never needed the gateway.
func (o *Order) IsBalanceOnly() bool {
	return o.totalAmount == 0 && o.balanceAmount > 0
}

func (o *Order) ID() uint {
	return o.id
}

func (o *Order) TradeNo() string {
	return o.tradeNo
}

func (o *Order) UserID() uint {
	return o.userID
}

func (o *Order) TotalAmount() int64 {
	return o.totalAmount
}

func (o *Order) BalanceAmount() int64 {
	return o.balanceAmount
}

func (o *Order) Status() vo.OrderStatus {
	return o.status
}

func (o *Order) PaidAt() *time.Time {
	return o.paidAt
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// SetID sets the order ID after persistence (used by repository after Create)
func (o *Order) SetID(id uint) {
	o.id = id
}

func ReconstructOrder(
	id uint,
	tradeNo string,
	userID uint,
	totalAmount, balanceAmount int64,
	status vo.OrderStatus,
	paidAt *time.Time,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:            id,
		tradeNo:       tradeNo,
		userID:        userID,
		totalAmount:   totalAmount,
		balanceAmount: balanceAmount,
		status:        status,
		paidAt:        paidAt,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}
