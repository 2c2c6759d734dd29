package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/venturehq/incentive-engine/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return &user, nil
}

// ListByVenture retrieves all users belonging to a venture.
func (r *UserRepository) ListByVenture(ventureID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("venture_id = ?", ventureID).Order("id ASC").Find(&users).Error
	return users, err
}
