package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/progress"
)

// ModuleProgress tracks one student's exam progress through one module.
type ModuleProgress struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	StudentID         uint       `gorm:"uniqueIndex:idx_progress_student_module;not null" json:"student_id"`
	ModuleID          uint       `gorm:"uniqueIndex:idx_progress_student_module;not null" json:"module_id"`
	Status            string     `gorm:"size:32;not null;default:not_started" json:"status"`
	ExamAttemptsUsed  int        `gorm:"not null;default:0" json:"exam_attempts_used"`
	ExamFirstScore    *float64   `json:"exam_first_score"`
	ExamBestScore     *float64   `json:"exam_best_score"`
	PrimaryExamFailed bool       `gorm:"not null;default:false" json:"primary_exam_failed"`
	RetakeExamFailed  bool       `gorm:"not null;default:false" json:"retake_exam_failed"`
	RetakeUnlockedAt  *time.Time `json:"retake_unlocked_at"`
	RetakeUnlockedBy  *uint      `json:"retake_unlocked_by"`
	StartedAt         *time.Time `json:"started_at"`
	ExamPassedAt      *time.Time `json:"exam_passed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// State projects the row onto the progress state machine.
func (m ModuleProgress) State() progress.State {
	return progress.State{
		Status:            progress.Status(m.Status),
		ExamAttemptsUsed:  m.ExamAttemptsUsed,
		ExamFirstScore:    m.ExamFirstScore,
		ExamBestScore:     m.ExamBestScore,
		PrimaryExamFailed: m.PrimaryExamFailed,
		RetakeExamFailed:  m.RetakeExamFailed,
		RetakeUnlockedAt:  m.RetakeUnlockedAt,
		StartedAt:         m.StartedAt,
		ExamPassedAt:      m.ExamPassedAt,
	}.Normalize()
}

// Apply copies a state machine result back onto the row.
func (m *ModuleProgress) Apply(s progress.State) {
	m.Status = string(s.Status)
	m.ExamAttemptsUsed = s.ExamAttemptsUsed
	m.ExamFirstScore = s.ExamFirstScore
	m.ExamBestScore = s.ExamBestScore
	m.PrimaryExamFailed = s.PrimaryExamFailed
	m.RetakeExamFailed = s.RetakeExamFailed
	m.RetakeUnlockedAt = s.RetakeUnlockedAt
	m.StartedAt = s.StartedAt
	m.ExamPassedAt = s.ExamPassedAt
}

// BeforeSave refuses to persist a state that breaks the progress invariants.
func (m *ModuleProgress) BeforeSave(tx *gorm.DB) error {
	return progress.Validate(m.State())
}

// CourseGrade is the aggregated grade of a student in a course.
type CourseGrade struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"uniqueIndex:idx_course_grade_student_course;not null" json:"student_id"`
	CourseID     uint      `gorm:"uniqueIndex:idx_course_grade_student_course;not null" json:"course_id"`
	PointsEarned float64   `gorm:"not null" json:"points_earned"`
	PointsTotal  float64   `gorm:"not null" json:"points_total"`
	Percentage   float64   `gorm:"not null" json:"percentage"`
	Letter       string    `gorm:"size:2" json:"letter"`
	ItemsCounted int       `gorm:"not null" json:"items_counted"`
	ComputedAt   time.Time `gorm:"not null" json:"computed_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
