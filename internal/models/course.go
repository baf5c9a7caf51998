package models

import "time"

// DefaultPassPercentage applies to modules created without an explicit pass mark.
const DefaultPassPercentage = 60.0

// Course is a unit of study composed of modules, assignments and quizzes.
type Course struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	ProgramID   *uint        `gorm:"index" json:"program_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Modules     []Module     `json:"modules,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
	Quizzes     []Quiz       `json:"quizzes,omitempty"`
}

// Module is a structured unit within a course gated by an exam.
type Module struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CourseID       uint      `gorm:"index;not null" json:"course_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Position       int       `gorm:"not null;default:0" json:"position"`
	ExamQuizID     *uint     `json:"exam_quiz_id"`
	RetakeQuizID   *uint     `json:"retake_quiz_id"`
	PassPercentage float64   `gorm:"not null;default:60" json:"pass_percentage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PassMark returns the configured pass percentage or the default.
func (m Module) PassMark() float64 {
	if m.PassPercentage <= 0 {
		return DefaultPassPercentage
	}
	return m.PassPercentage
}

// Quiz kinds.
const (
	QuizKindQuiz   = "quiz"
	QuizKindExam   = "exam"
	QuizKindRetake = "retake"
)

// Quiz is an assessment scored in points. Exams and retakes gate module completion.
type Quiz struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	ModuleID  *uint     `gorm:"index" json:"module_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Kind      string    `gorm:"size:16;not null;default:quiz" json:"kind"`
	MaxPoints float64   `gorm:"not null" json:"max_points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizAttempt stores the scored result of one quiz attempt.
type QuizAttempt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	QuizID        uint      `gorm:"index;not null" json:"quiz_id"`
	StudentID     uint      `gorm:"index;not null" json:"student_id"`
	PointsAwarded float64   `gorm:"not null" json:"points_awarded"`
	MaxPoints     float64   `gorm:"not null" json:"max_points"`
	CompletedAt   time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt     time.Time `json:"created_at"`
}
