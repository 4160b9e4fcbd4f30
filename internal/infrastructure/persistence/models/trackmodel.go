package models

import "time"

type TrackModel struct {
	ID        uint   `gorm:"primaryKey"`
	TrackID   string `gorm:"uniqueIndex;size:64;not null"`
	OrderID   uint   `gorm:"index;not null"`
	TradeNo   string `gorm:"index;size:64;not null"`
	IsUsed    bool   `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index"`
}

func (TrackModel) TableName() string {
	return "payment_tracks"
}
