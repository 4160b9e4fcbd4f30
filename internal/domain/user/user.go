package user

import (
	"fmt"
	"time"

	"paysweep/internal/shared/biztime"
)

// User carries the wallet balance this core credits on refunds. Balance is
// in the smallest currency unit and is only mutated inside the locked refund
// transaction.
type User struct {
	id        uint
	email     string
	balance   int64
	createdAt time.Time
	updatedAt time.Time
}

// CreditBalance adds amount to the wallet balance.
func (u *User) CreditBalance(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	u.balance += amount
	u.updatedAt = biztime.NowUTC()
	return nil
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) Email() string {
	return u.email
}

func (u *User) Balance() int64 {
	return u.balance
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

func ReconstructUser(id uint, email string, balance int64, createdAt, updatedAt time.Time) *User {
	return &User{
		id:        id,
		email:     email,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}
