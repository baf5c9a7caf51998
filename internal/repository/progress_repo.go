package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ProgressRepository persists module progress rows.
type ProgressRepository interface {
	Get(ctx context.Context, studentID, moduleID uint) (models.ModuleProgress, error)
	Save(ctx context.Context, progress *models.ModuleProgress) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.ModuleProgress, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs the module progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, studentID, moduleID uint) (models.ModuleProgress, error) {
	var progress models.ModuleProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND module_id = ?", studentID, moduleID).
		First(&progress).Error; err != nil {
		return models.ModuleProgress{}, err
	}
	return progress, nil
}

// Save inserts or updates the row keyed by student and module.
func (r *progressRepository) Save(ctx context.Context, progress *models.ModuleProgress) error {
	if progress.ID != 0 {
		return r.db.WithContext(ctx).Save(progress).Error
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "exam_attempts_used", "exam_first_score", "exam_best_score",
			"primary_exam_failed", "retake_exam_failed", "retake_unlocked_at",
			"retake_unlocked_by", "started_at", "exam_passed_at", "updated_at",
		}),
	}).Create(progress).Error
}

func (r *progressRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.ModuleProgress, error) {
	var items []models.ModuleProgress
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("module_id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
