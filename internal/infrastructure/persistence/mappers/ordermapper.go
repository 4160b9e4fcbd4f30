package mappers

import (
	"fmt"

	"paysweep/internal/domain/order"
	vo "paysweep/internal/domain/order/valueobjects"
	"paysweep/internal/infrastructure/persistence/models"
)

func OrderToModel(o *order.Order) *models.OrderModel {
	return &models.OrderModel{
		ID:            o.ID(),
		TradeNo:       o.TradeNo(),
		UserID:        o.UserID(),
		TotalAmount:   o.TotalAmount(),
		BalanceAmount: o.BalanceAmount(),
		Status:        o.Status().Int(),
		PaidAt:        o.PaidAt(),
		CreatedAt:     o.CreatedAt(),
		UpdatedAt:     o.UpdatedAt(),
	}
}

func OrderToDomain(model *models.OrderModel) (*order.Order, error) {
	status := vo.OrderStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid order status: %d", model.Status)
	}

	return order.ReconstructOrder(
		model.ID,
		model.TradeNo,
		model.UserID,
		model.TotalAmount,
		model.BalanceAmount,
		status,
		model.PaidAt,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}
