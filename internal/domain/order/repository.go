package order

import (
	"context"
	"time"

	vo "paysweep/internal/domain/order/valueobjects"
)

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	// Transition persists the order's state only if the durable row is still
	// in one of the given prior statuses. Returns false when a concurrent
	// writer already moved the order, in which case nothing was written.
	Transition(ctx context.Context, order *Order, from ...vo.OrderStatus) (bool, error)
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByTradeNo(ctx context.Context, tradeNo string) (*Order, error)
	// ListByStatusesCreatedSince returns orders in any of the given statuses
	// created at or after the cutoff, newest first.
	ListByStatusesCreatedSince(ctx context.Context, statuses []vo.OrderStatus, since time.Time) ([]*Order, error)
}
