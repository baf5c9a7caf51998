package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseRepository persists courses and the modules, assignments and quizzes they contain.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	CreateModule(ctx context.Context, module *models.Module) error
	GetModule(ctx context.Context, id uint) (models.Module, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	GetAssignment(ctx context.Context, id uint) (models.Assignment, error)
	ListAssignments(ctx context.Context, courseID uint) ([]models.Assignment, error)
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, id uint) (models.Quiz, error)
	ListQuizzes(ctx context.Context, courseID uint, kind string) ([]models.Quiz, error)
	CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	BestQuizAttempt(ctx context.Context, quizID, studentID uint) (models.QuizAttempt, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs the course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("due_at ASC") }).
		Preload("Quizzes").
		First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *courseRepository) GetModule(ctx context.Context, id uint) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return models.Module{}, err
	}
	return module, nil
}

func (r *courseRepository) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *courseRepository) GetAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *courseRepository) ListAssignments(ctx context.Context, courseID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *courseRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *courseRepository) GetQuiz(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *courseRepository) ListQuizzes(ctx context.Context, courseID uint, kind string) ([]models.Quiz, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var quizzes []models.Quiz
	if err := query.Order("id ASC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *courseRepository) CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *courseRepository) BestQuizAttempt(ctx context.Context, quizID, studentID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("points_awarded DESC, completed_at ASC").
		First(&attempt).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}
