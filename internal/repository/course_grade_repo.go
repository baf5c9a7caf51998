package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseGradeRepository stores aggregated course grades.
type CourseGradeRepository interface {
	Get(ctx context.Context, studentID, courseID uint) (models.CourseGrade, error)
	Upsert(ctx context.Context, grade *models.CourseGrade) error
}

type courseGradeRepository struct {
	db *gorm.DB
}

// NewCourseGradeRepository constructs the course grade repository.
func NewCourseGradeRepository(db *gorm.DB) CourseGradeRepository {
	return &courseGradeRepository{db: db}
}

func (r *courseGradeRepository) Get(ctx context.Context, studentID, courseID uint) (models.CourseGrade, error) {
	var grade models.CourseGrade
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&grade).Error; err != nil {
		return models.CourseGrade{}, err
	}
	return grade, nil
}

func (r *courseGradeRepository) Upsert(ctx context.Context, grade *models.CourseGrade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points_earned", "points_total", "percentage", "letter", "items_counted", "computed_at", "updated_at"}),
	}).Create(grade).Error
}
