package usecases

import (
	"context"
	"fmt"
	"time"

	"paysweep/internal/domain/track"
	"paysweep/internal/shared/biztime"
	"paysweep/internal/shared/logger"
)

// ExpireTracksUseCase force-marks old unused tracks as used so the
// reconciliation engine stops re-inquiring them, while keeping the rows for
// audit history. Deletion runs separately (CleanupTracksUseCase) on a later
// schedule.
type ExpireTracksUseCase struct {
	trackRepo track.TrackRepository
	logger    logger.Interface
}

func NewExpireTracksUseCase(trackRepo track.TrackRepository, logger logger.Interface) *ExpireTracksUseCase {
	return &ExpireTracksUseCase{trackRepo: trackRepo, logger: logger}
}

func (uc *ExpireTracksUseCase) Execute(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := biztime.NowUTC().Add(-olderThan)
	count, err := uc.trackRepo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire old tracks: %w", err)
	}
	if count > 0 {
		uc.logger.Infow("old payment tracks expired", "count", count, "older_than", olderThan)
	}
	return int(count), nil
}

// CleanupTracksUseCase deletes tracks past the retention age.
type CleanupTracksUseCase struct {
	trackRepo track.TrackRepository
	logger    logger.Interface
}

func NewCleanupTracksUseCase(trackRepo track.TrackRepository, logger logger.Interface) *CleanupTracksUseCase {
	return &CleanupTracksUseCase{trackRepo: trackRepo, logger: logger}
}

func (uc *CleanupTracksUseCase) Execute(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := biztime.NowUTC().Add(-olderThan)
	count, err := uc.trackRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old tracks: %w", err)
	}
	if count > 0 {
		uc.logger.Infow("old payment tracks deleted", "count", count, "older_than", olderThan)
	}
	return int(count), nil
}
