package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *string
}

// SubmissionRepository defines data operations for submissions and their grade versions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	CountAttempts(ctx context.Context, assignmentID, studentID uint) (int64, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	UpdateStatus(ctx context.Context, id uint, status string) error

	LatestGrade(ctx context.Context, submissionID uint) (models.Grade, error)
	AppendGrade(ctx context.Context, grade *models.Grade) error
	GradeHistory(ctx context.Context, submissionID uint) ([]models.Grade, error)
	LatestPublishedGrade(ctx context.Context, assignmentID, studentID uint) (models.Grade, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Preload("Grades", func(db *gorm.DB) *gorm.DB {
			return db.Order("version ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Order("attempt_number DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountAttempts(ctx context.Context, assignmentID, studentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student", "Grades").Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student", "Grades").Save(submission).Error
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Update("status", status).Error
}

func (r *submissionRepository) LatestGrade(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("version DESC").
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

// AppendGrade stores grade as the next version for its submission.
func (r *submissionRepository) AppendGrade(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&models.Grade{}).
			Where("submission_id = ?", grade.SubmissionID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}

		grade.Version = latest + 1
		return tx.Create(grade).Error
	})
}

func (r *submissionRepository) GradeHistory(ctx context.Context, submissionID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("version ASC").
		Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

// LatestPublishedGrade returns the newest published grade of the highest attempt that has one.
func (r *submissionRepository) LatestPublishedGrade(ctx context.Context, assignmentID, studentID uint) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = grades.submission_id").
		Where("submissions.assignment_id = ? AND submissions.student_id = ?", assignmentID, studentID).
		Where("grades.is_published = ?", true).
		Order("submissions.attempt_number DESC").
		Order("grades.version DESC").
		First(&grade).Error
	if err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
