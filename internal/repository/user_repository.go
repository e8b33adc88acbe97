package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"manabinote/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

// GetOrCreate returns the user with the given id, creating it lazily on
// first contact. Concurrent first contacts are resolved by re-reading after
// a duplicate-key failure.
func (r *UserRepository) GetOrCreate(id string) (*model.User, error) {
	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &model.User{ID: id, Name: model.DefaultUserName}
	if err := r.db.Create(user).Error; err != nil {
		if existing, getErr := r.GetByID(id); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create user failed: %w", err)
	}
	return user, nil
}
