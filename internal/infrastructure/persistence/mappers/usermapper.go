package mappers

import (
	"paysweep/internal/domain/user"
	"paysweep/internal/infrastructure/persistence/models"
)

func UserToModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:        u.ID(),
		Email:     u.Email(),
		Balance:   u.Balance(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func UserToDomain(model *models.UserModel) *user.User {
	return user.ReconstructUser(
		model.ID,
		model.Email,
		model.Balance,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
