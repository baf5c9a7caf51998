package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ModuleProgressResponse describes a student's progress in a module.
type ModuleProgressResponse struct {
	StudentID         uint       `json:"student_id"`
	ModuleID          uint       `json:"module_id"`
	Status            string     `json:"status"`
	ExamAttemptsUsed  int        `json:"exam_attempts_used"`
	ExamFirstScore    *float64   `json:"exam_first_score"`
	ExamBestScore     *float64   `json:"exam_best_score"`
	PrimaryExamFailed bool       `json:"primary_exam_failed"`
	RetakeExamFailed  bool       `json:"retake_exam_failed"`
	RetakeUnlockedAt  *time.Time `json:"retake_unlocked_at"`
	StartedAt         *time.Time `json:"started_at"`
	ExamPassedAt      *time.Time `json:"exam_passed_at"`
	NextAttempt       string     `json:"next_attempt,omitempty"`
}

// ExamAttemptResponse reports the effect of an exam attempt.
type ExamAttemptResponse struct {
	Kind     string                 `json:"kind"`
	Score    float64                `json:"score"`
	Passed   bool                   `json:"passed"`
	Locked   bool                   `json:"locked"`
	Progress ModuleProgressResponse `json:"progress"`
}

// NewModuleProgressResponse converts a progress row.
func NewModuleProgressResponse(p models.ModuleProgress) ModuleProgressResponse {
	status := p.Status
	if status == "" {
		status = "not_started"
	}
	return ModuleProgressResponse{
		StudentID:         p.StudentID,
		ModuleID:          p.ModuleID,
		Status:            status,
		ExamAttemptsUsed:  p.ExamAttemptsUsed,
		ExamFirstScore:    p.ExamFirstScore,
		ExamBestScore:     p.ExamBestScore,
		PrimaryExamFailed: p.PrimaryExamFailed,
		RetakeExamFailed:  p.RetakeExamFailed,
		RetakeUnlockedAt:  p.RetakeUnlockedAt,
		StartedAt:         p.StartedAt,
		ExamPassedAt:      p.ExamPassedAt,
	}
}

// CourseGradeResponse describes an aggregated course grade.
type CourseGradeResponse struct {
	StudentID    uint      `json:"student_id"`
	CourseID     uint      `json:"course_id"`
	PointsEarned float64   `json:"points_earned"`
	PointsTotal  float64   `json:"points_total"`
	Percentage   float64   `json:"percentage"`
	Letter       string    `json:"letter"`
	ItemsCounted int       `json:"items_counted"`
	ComputedAt   time.Time `json:"computed_at"`
}

// NewCourseGradeResponse converts a course grade row.
func NewCourseGradeResponse(g models.CourseGrade) CourseGradeResponse {
	return CourseGradeResponse{
		StudentID:    g.StudentID,
		CourseID:     g.CourseID,
		PointsEarned: g.PointsEarned,
		PointsTotal:  g.PointsTotal,
		Percentage:   g.Percentage,
		Letter:       g.Letter,
		ItemsCounted: g.ItemsCounted,
		ComputedAt:   g.ComputedAt,
	}
}

// RecomputeResponse acknowledges a recompute request.
type RecomputeResponse struct {
	Queued bool `json:"queued"`
}
