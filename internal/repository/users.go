package repository

import (
	"context"
	"errors"

	"creddit/internal/apperror"
	"creddit/internal/models"

	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts user. A duplicate username or email is reported as a
// Conflict on the offending field.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if field, ok := uniqueViolation(err); ok {
		switch field {
		case "email":
			return apperror.Conflict("email", "Email is already registered")
		default:
			return apperror.Conflict("username", "Username has already been claimed")
		}
	}
	return wrap("create user", err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user", arg)
	}
	if err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return wrap("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
