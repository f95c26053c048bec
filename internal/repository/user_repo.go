package repository

import (
	"time"

	"bakery-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByEmail(email string) (*model.User, error)
	FindByID(id uuid.UUID) (*model.User, error)
	Create(user *model.User) error
	Count() (int64, error)
	UpdateLastLogin(userID uuid.UUID) error
	UpdatePassword(userID uuid.UUID, hash string) error
	FindAll() ([]model.User, error)
	Update(user *model.User) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func (r *userRepo) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func (r *userRepo) Create(user *model.User) error {
	return errors.Wrap(r.db.Create(user).Error, "create user")
}

func (r *userRepo) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.User{}).Count(&n).Error
	return n, errors.Wrap(err, "count users")
}

func (r *userRepo) UpdateLastLogin(userID uuid.UUID) error {
	err := r.db.Model(&model.User{}).Where("id = ?", userID).Update("last_login_at", time.Now()).Error
	return errors.Wrap(err, "update last login")
}

func (r *userRepo) UpdatePassword(userID uuid.UUID, hash string) error {
	err := r.db.Model(&model.User{}).Where("id = ?", userID).Update("password", hash).Error
	return errors.Wrap(err, "update password")
}

func (r *userRepo) FindAll() ([]model.User, error) {
	var users []model.User
	err := r.db.Order("full_name ASC").Find(&users).Error
	return users, errors.Wrap(err, "list users")
}

// Update saves the profile fields. is_active is written explicitly since
// its column default would swallow a false value.
func (r *userRepo) Update(user *model.User) error {
	err := r.db.Model(user).Select("email", "password", "full_name", "role", "is_active").Updates(user).Error
	return errors.Wrap(err, "update user")
}
