package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// StudentRepository exposes read access to student profiles.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByUserID(ctx context.Context, userID uint) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository backed by GORM.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("User").First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&student).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}
