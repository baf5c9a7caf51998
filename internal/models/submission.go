package models

import "time"

const (
	// SubmissionStatusDraft indicates work saved but not handed in.
	SubmissionStatusDraft = "draft"
	// SubmissionStatusSubmitted indicates the submission has been handed in but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates a published grade exists.
	SubmissionStatusGraded = "graded"
)

// Submission is one attempt by a student at an assignment.
type Submission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AssignmentID  uint       `gorm:"index;not null" json:"assignment_id"`
	StudentID     uint       `gorm:"index;not null" json:"student_id"`
	AttemptNumber int        `gorm:"not null;default:1" json:"attempt_number"`
	Status        string     `gorm:"size:32;not null" json:"status"`
	Body          string     `gorm:"type:text" json:"body"`
	FileURL       string     `gorm:"size:512" json:"file_url"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	IsLate        bool       `gorm:"not null;default:false" json:"is_late"`
	LateDays      int        `gorm:"not null;default:0" json:"late_days"`
	LatePenalty   float64    `gorm:"not null;default:0" json:"late_penalty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Assignment    Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student       Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Grades        []Grade    `json:"grades,omitempty"`
}

// IsGraded reports whether the submission has a published grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// Gradable reports whether an instructor may grade the submission.
func (s Submission) Gradable() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusGraded
}

// Grade is one append-only grading version of a submission.
type Grade struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	SubmissionID          uint      `gorm:"uniqueIndex:idx_grade_submission_version;not null" json:"submission_id"`
	Version               int       `gorm:"uniqueIndex:idx_grade_submission_version;not null" json:"version"`
	PointsAwarded         float64   `gorm:"not null" json:"points_awarded"`
	MaxPoints             float64   `gorm:"not null" json:"max_points"`
	LatePenalty           float64   `gorm:"not null;default:0" json:"late_penalty"`
	LatePenaltyOverride   *float64  `json:"late_penalty_override"`
	MaxPointsAfterPenalty float64   `gorm:"not null" json:"max_points_after_penalty"`
	Feedback              string    `gorm:"type:text" json:"feedback"`
	IsPublished           bool      `gorm:"index;not null;default:false" json:"is_published"`
	GradedBy              uint      `gorm:"not null" json:"graded_by"`
	GradedAt              time.Time `gorm:"not null" json:"graded_at"`
	CreatedAt             time.Time `json:"created_at"`
}

// SameDecision reports whether g records the same outcome as other.
func (g Grade) SameDecision(other Grade) bool {
	sameOverride := (g.LatePenaltyOverride == nil && other.LatePenaltyOverride == nil) ||
		(g.LatePenaltyOverride != nil && other.LatePenaltyOverride != nil && *g.LatePenaltyOverride == *other.LatePenaltyOverride)
	return g.PointsAwarded == other.PointsAwarded &&
		g.LatePenalty == other.LatePenalty &&
		sameOverride &&
		g.Feedback == other.Feedback &&
		g.IsPublished == other.IsPublished
}
