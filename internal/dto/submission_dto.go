package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmissionCreateRequest captures the payload to start a new submission attempt.
type SubmissionCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" form:"assignment_id" validate:"required,gt=0"`
	Body         string `json:"body" form:"body" validate:"max=20000"`
}

// SubmissionFilter captures query parameters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint  `query:"assignment_id"`
	Status       string `query:"status" validate:"omitempty,oneof=draft submitted graded"`
}

// SubmissionResponse represents the API view of a submission.
type SubmissionResponse struct {
	ID            uint           `json:"id"`
	AssignmentID  uint           `json:"assignment_id"`
	StudentID     uint           `json:"student_id"`
	AttemptNumber int            `json:"attempt_number"`
	Status        string         `json:"status"`
	Body          string         `json:"body"`
	FileURL       string         `json:"file_url"`
	SubmittedAt   *time.Time     `json:"submitted_at"`
	IsLate        bool           `json:"is_late"`
	LateDays      int            `json:"late_days"`
	LatePenalty   float64        `json:"late_penalty"`
	Grade         *GradeResponse `json:"grade,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewSubmissionResponse converts a submission model.
func NewSubmissionResponse(s models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:            s.ID,
		AssignmentID:  s.AssignmentID,
		StudentID:     s.StudentID,
		AttemptNumber: s.AttemptNumber,
		Status:        s.Status,
		Body:          s.Body,
		FileURL:       s.FileURL,
		SubmittedAt:   s.SubmittedAt,
		IsLate:        s.IsLate,
		LateDays:      s.LateDays,
		LatePenalty:   s.LatePenalty,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// GradeRequest is an instructor's grading decision.
type GradeRequest struct {
	PointsAwarded       *float64 `json:"points_awarded" validate:"required"`
	LatePenaltyOverride *float64 `json:"late_penalty_override"`
	Feedback            string   `json:"feedback" validate:"max=5000"`
	Action              string   `json:"action" validate:"required,oneof=draft publish"`
}

// GradeResponse is one grade version.
type GradeResponse struct {
	ID                    uint      `json:"id"`
	SubmissionID          uint      `json:"submission_id"`
	Version               int       `json:"version"`
	PointsAwarded         float64   `json:"points_awarded"`
	MaxPoints             float64   `json:"max_points"`
	LatePenalty           float64   `json:"late_penalty"`
	LatePenaltyOverride   *float64  `json:"late_penalty_override"`
	MaxPointsAfterPenalty float64   `json:"max_points_after_penalty"`
	Feedback              string    `json:"feedback"`
	IsPublished           bool      `json:"is_published"`
	GradedBy              uint      `json:"graded_by"`
	GradedAt              time.Time `json:"graded_at"`
}

// NewGradeResponse converts a grade model.
func NewGradeResponse(g models.Grade) GradeResponse {
	return GradeResponse{
		ID:                    g.ID,
		SubmissionID:          g.SubmissionID,
		Version:               g.Version,
		PointsAwarded:         g.PointsAwarded,
		MaxPoints:             g.MaxPoints,
		LatePenalty:           g.LatePenalty,
		LatePenaltyOverride:   g.LatePenaltyOverride,
		MaxPointsAfterPenalty: g.MaxPointsAfterPenalty,
		Feedback:              g.Feedback,
		IsPublished:           g.IsPublished,
		GradedBy:              g.GradedBy,
		GradedAt:              g.GradedAt,
	}
}

// GradeCeilingResponse previews the achievable maximum for a submission.
type GradeCeilingResponse struct {
	SubmissionID          uint    `json:"submission_id"`
	MaxPoints             float64 `json:"max_points"`
	LatePenalty           float64 `json:"late_penalty"`
	PenaltyOverridden     bool    `json:"penalty_overridden"`
	MaxPointsAfterPenalty float64 `json:"max_points_after_penalty"`
}

// GradeOutcome is returned after grading.
type GradeOutcome struct {
	Submission SubmissionResponse `json:"submission"`
	Grade      GradeResponse      `json:"grade"`
	Unchanged  bool               `json:"unchanged"`
}
