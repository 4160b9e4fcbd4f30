package mappers

import (
	"paysweep/internal/domain/track"
	"paysweep/internal/infrastructure/persistence/models"
)

func TrackToModel(t *track.Track) *models.TrackModel {
	return &models.TrackModel{
		ID:        t.ID(),
		TrackID:   t.TrackID(),
		OrderID:   t.OrderID(),
		TradeNo:   t.TradeNo(),
		IsUsed:    t.IsUsed(),
		CreatedAt: t.CreatedAt(),
	}
}

func TrackToDomain(model *models.TrackModel) *track.Track {
	return track.ReconstructTrack(
		model.ID,
		model.TrackID,
		model.OrderID,
		model.TradeNo,
		model.IsUsed,
		model.CreatedAt,
	)
}
