package models

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/grading"
)

// Assignment is a gradable task with a deadline and a late policy.
type Assignment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CourseID          uint      `gorm:"index;not null" json:"course_id"`
	ModuleID          *uint     `gorm:"index" json:"module_id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	Description       string    `gorm:"type:text" json:"description"`
	MaxPoints         float64   `gorm:"not null" json:"max_points"`
	DueAt             time.Time `gorm:"not null" json:"due_at"`
	LatePolicy        string    `gorm:"size:16;not null;default:allow" json:"late_policy"`
	LatePenaltyPerDay float64   `gorm:"not null;default:0" json:"late_penalty_per_day"`
	MaxAttempts       int       `gorm:"not null;default:0" json:"max_attempts"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueAt)
}

// Policy converts the stored late policy columns.
func (a Assignment) Policy() grading.LatePolicy {
	return grading.LatePolicy{
		Kind:          grading.LatePolicyKind(a.LatePolicy),
		PenaltyPerDay: a.LatePenaltyPerDay,
	}
}

// AllowsAttempt reports whether attempt number n is permitted. Zero max means unlimited.
func (a Assignment) AllowsAttempt(n int) bool {
	return a.MaxAttempts <= 0 || n <= a.MaxAttempts
}
