package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"paysweep/internal/domain/order"
	vo "paysweep/internal/domain/order/valueobjects"
	"paysweep/internal/infrastructure/persistence/mappers"
	"paysweep/internal/infrastructure/persistence/models"
	"paysweep/internal/shared/db"
	apperrors "paysweep/internal/shared/errors"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ order.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := mappers.OrderToModel(o)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Write back the auto-generated ID to the domain object
	o.SetID(model.ID)

	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	model := mappers.OrderToModel(o)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"paid_at":    model.PaidAt,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update order: %w", result.Error)
	}

	// Note: RowsAffected may be 0 when updated values are identical to existing values.

	return nil
}

func (r *OrderRepository) Transition(ctx context.Context, o *order.Order, from ...vo.OrderStatus) (bool, error) {
	model := mappers.OrderToModel(o)

	prior := make([]int, 0, len(from))
	for _, s := range from {
		prior = append(prior, s.Int())
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.OrderModel{}).
		Where("id = ? AND status IN ?", model.ID, prior).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"paid_at":    model.PaidAt,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to transition order: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	var model models.OrderModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return mappers.OrderToDomain(&model)
}

func (r *OrderRepository) GetByTradeNo(ctx context.Context, tradeNo string) (*order.Order, error) {
	var model models.OrderModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("trade_no = ?", tradeNo).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, fmt.Errorf("failed to get order by trade_no: %w", err)
	}

	return mappers.OrderToDomain(&model)
}

func (r *OrderRepository) ListByStatusesCreatedSince(ctx context.Context, statuses []vo.OrderStatus, since time.Time) ([]*order.Order, error) {
	ints := make([]int, 0, len(statuses))
	for _, s := range statuses {
		ints = append(ints, s.Int())
	}

	var orderModels []models.OrderModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status IN ?", ints).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&orderModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}

	orders := make([]*order.Order, 0, len(orderModels))
	for i := range orderModels {
		o, err := mappers.OrderToDomain(&orderModels[i])
		if err != nil {
			return nil, fmt.Errorf("failed to map order %d: %w", orderModels[i].ID, err)
		}
		orders = append(orders, o)
	}

	return orders, nil
}
