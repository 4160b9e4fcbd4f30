package user

import "context"

type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*User, error)
	// GetByIDForUpdate loads the user with an exclusive row lock. Must be
	// called inside a transaction; the lock is held until commit.
	GetByIDForUpdate(ctx context.Context, id uint) (*User, error)
	Update(ctx context.Context, user *User) error
}
