package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ApplicationCreateRequest is a public admission request.
type ApplicationCreateRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=128"`
	LastName  string `json:"last_name" validate:"required,min=1,max=128"`
	Email     string `json:"email" validate:"required,email,max=255"`
	ProgramID *uint  `json:"program_id" validate:"omitempty,gt=0"`
}

// ApplicationReviewRequest carries an optional reviewer note.
type ApplicationReviewRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// ApplicationListRequest filters admission listings.
type ApplicationListRequest struct {
	Status   string
	Page     int
	PageSize int
}

// ApplicationResponse describes an admission application.
type ApplicationResponse struct {
	ID          uint       `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	ProgramID   *uint      `json:"program_id"`
	Status      string     `json:"status"`
	ReviewNote  string     `json:"review_note,omitempty"`
	UserID      *uint      `json:"user_id"`
	LMSSynced   bool       `json:"lms_synced"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ApplicationListResponse wraps a page of applications.
type ApplicationListResponse struct {
	Items      []ApplicationResponse `json:"items"`
	Pagination PaginationMeta        `json:"pagination"`
}

// NewApplicationResponse converts an application row.
func NewApplicationResponse(a models.StudentApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		ProgramID:   a.ProgramID,
		Status:      a.Status,
		ReviewNote:  a.ReviewNote,
		UserID:      a.UserID,
		LMSSynced:   a.LMSSynced,
		ProcessedAt: a.ProcessedAt,
		CreatedAt:   a.CreatedAt,
	}
}
