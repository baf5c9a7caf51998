package models

import "time"

// Student is the learner profile attached to a student user.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	ProgramID     *uint     `gorm:"index" json:"program_id"`
	StudentNumber string    `gorm:"size:32;uniqueIndex;not null" json:"student_number"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;index;not null" json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// Application status values.
const (
	ApplicationStatusSubmitted      = "submitted"
	ApplicationStatusApproved       = "approved"
	ApplicationStatusPendingReview  = "pending_review"
	ApplicationStatusAccountCreated = "account_created"
	ApplicationStatusRejected       = "rejected"
	ApplicationStatusFailed         = "failed"
)

// StudentApplication is an admission request that becomes a student account once approved.
type StudentApplication struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:128;not null" json:"first_name"`
	LastName    string     `gorm:"size:128;not null" json:"last_name"`
	Email       string     `gorm:"size:255;index;not null" json:"email"`
	ProgramID   *uint      `gorm:"index" json:"program_id"`
	Status      string     `gorm:"size:32;index;not null" json:"status"`
	ReviewNote  string     `gorm:"type:text" json:"review_note"`
	UserID      *uint      `json:"user_id"`
	LMSSynced   bool       `gorm:"column:lms_synced;not null;default:false" json:"lms_synced"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (a StudentApplication) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
