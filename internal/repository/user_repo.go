package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// UserRepository exposes lookups over platform accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	RecipientIDs(ctx context.Context, audience string, programID *uint) ([]uint, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// RecipientIDs resolves an announcement audience to active user ids in ascending order.
func (r *userRepository) RecipientIDs(ctx context.Context, audience string, programID *uint) ([]uint, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("users.status = ?", models.UserStatusActive)

	switch audience {
	case models.AudienceStudents:
		query = query.Where("users.role = ?", models.RoleStudent)
	case models.AudienceInstructors:
		query = query.Where("users.role = ?", models.RoleInstructor)
	case models.AudienceAdmins:
		query = query.Where("users.role = ?", models.RoleAdmin)
	case models.AudienceProgram:
		if programID == nil {
			return nil, nil
		}
		query = query.Joins("JOIN students ON students.user_id = users.id").
			Where("students.program_id = ?", *programID)
	}

	var ids []uint
	if err := query.Order("users.id ASC").Pluck("users.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}
