package models

import "time"

type OrderModel struct {
	ID            uint   `gorm:"primaryKey"`
	TradeNo       string `gorm:"uniqueIndex;size:64;not null"`
	UserID        uint   `gorm:"index;not null"`
	TotalAmount   int64  `gorm:"not null"`
	BalanceAmount int64  `gorm:"not null;default:0"`
	Status        int    `gorm:"not null;index"`
	PaidAt        *time.Time
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}
