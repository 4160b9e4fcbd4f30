package valueobjects

import "fmt"

// OrderStatus is persisted as the integer codes used by the panel schema.
type OrderStatus int

const (
	OrderStatusPending          OrderStatus = 0
	OrderStatusCancelled        OrderStatus = 2
	OrderStatusPaid             OrderStatus = 3
	OrderStatusRefundedToWallet OrderStatus = 4
)

func NewOrderStatus(code int) (OrderStatus, error) {
	s := OrderStatus(code)
	if !s.IsValid() {
		return 0, fmt.Errorf("invalid order status code: %d", code)
	}
	return s, nil
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCancelled, OrderStatusPaid, OrderStatusRefundedToWallet:
		return true
	default:
		return false
	}
}

func (s OrderStatus) IsPending() bool {
	return s == OrderStatusPending
}

func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusPaid
}

// IsTerminal reports whether no further transition is allowed from this
// status. Cancelled is deliberately not terminal: the deep recovery sweep may
// still move a cancelled order to paid or refunded once the gateway reports
// captured funds.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusRefundedToWallet
}

func (s OrderStatus) Int() int {
	return int(s)
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusPaid:
		return "paid"
	case OrderStatusRefundedToWallet:
		return "refunded_to_wallet"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
