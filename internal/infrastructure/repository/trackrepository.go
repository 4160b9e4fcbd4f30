package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"paysweep/internal/domain/track"
	"paysweep/internal/infrastructure/persistence/mappers"
	"paysweep/internal/infrastructure/persistence/models"
	"paysweep/internal/shared/db"
)

type TrackRepository struct {
	db *gorm.DB
}

func NewTrackRepository(db *gorm.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

var _ track.TrackRepository = (*TrackRepository)(nil)

func (r *TrackRepository) Create(ctx context.Context, t *track.Track) error {
	model := mappers.TrackToModel(t)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}

	t.SetID(model.ID)

	return nil
}

func (r *TrackRepository) GetByTradeNo(ctx context.Context, tradeNo string) (*track.Track, error) {
	return r.getOne(ctx, "trade_no = ?", tradeNo)
}

func (r *TrackRepository) GetByOrderID(ctx context.Context, orderID uint) (*track.Track, error) {
	return r.getOne(ctx, "order_id = ?", orderID)
}

func (r *TrackRepository) GetByTrackID(ctx context.Context, trackID string) (*track.Track, error) {
	return r.getOne(ctx, "track_id = ?", trackID)
}

// getOne returns (nil, nil) when no track matches; absence is a normal
// reconciliation branch.
func (r *TrackRepository) getOne(ctx context.Context, query string, arg interface{}) (*track.Track, error) {
	var model models.TrackModel

	err := db.GetTxFromContext(ctx, r.db).
		Where(query, arg).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return mappers.TrackToDomain(&model), nil
}

func (r *TrackRepository) MarkUsed(ctx context.Context, trackID string) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TrackModel{}).
		Where("track_id = ? AND is_used = ?", trackID, false).
		Update("is_used", true)

	if result.Error != nil {
		return false, fmt.Errorf("failed to mark track used: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *TrackRepository) DeleteIfUnused(ctx context.Context, tradeNo string) error {
	if err := db.GetTxFromContext(ctx, r.db).
		Where("trade_no = ? AND is_used = ?", tradeNo, false).
		Delete(&models.TrackModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete unused track: %w", err)
	}
	return nil
}

func (r *TrackRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TrackModel{}).
		Where("created_at < ? AND is_used = ?", cutoff, false).
		Update("is_used", true)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire tracks: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *TrackRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Where("created_at < ?", cutoff).
		Delete(&models.TrackModel{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old tracks: %w", result.Error)
	}

	return result.RowsAffected, nil
}
