package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// AnnouncementCreateRequest is the payload to broadcast an announcement.
type AnnouncementCreateRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=255"`
	Body      string `json:"body" validate:"required,min=1,max=20000"`
	Audience  string `json:"audience" validate:"required,oneof=all students instructors admins program"`
	ProgramID *uint  `json:"program_id" validate:"omitempty,gt=0"`
	SendEmail bool   `json:"send_email"`
}

// AnnouncementListRequest filters announcement listings.
type AnnouncementListRequest struct {
	Audience string
	Page     int
	PageSize int
}

// AnnouncementResponse describes an announcement and its dispatch state.
type AnnouncementResponse struct {
	ID           uint       `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Audience     string     `json:"audience"`
	ProgramID    *uint      `json:"program_id"`
	SendEmail    bool       `json:"send_email"`
	CreatedBy    uint       `json:"created_by"`
	Recipients   int        `json:"recipients"`
	Chunks       int        `json:"chunks"`
	DispatchedAt *time.Time `json:"dispatched_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AnnouncementListResponse wraps a page of announcements.
type AnnouncementListResponse struct {
	Items      []AnnouncementResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewAnnouncementResponse converts an announcement row.
func NewAnnouncementResponse(a models.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:           a.ID,
		Slug:         a.Slug,
		Title:        a.Title,
		Body:         a.Body,
		Audience:     a.Audience,
		ProgramID:    a.ProgramID,
		SendEmail:    a.SendEmail,
		CreatedBy:    a.CreatedBy,
		Recipients:   a.Recipients,
		Chunks:       a.Chunks,
		DispatchedAt: a.DispatchedAt,
		CreatedAt:    a.CreatedAt,
	}
}

// NotificationCreateRequest describes a notification for a single user.
type NotificationCreateRequest struct {
	UserID    uint   `json:"user_id" validate:"required,gt=0"`
	Type      string `json:"type" validate:"required,max=64"`
	Title     string `json:"title" validate:"max=255"`
	Message   string `json:"message" validate:"required,min=1,max=2000"`
	SourceKey string `json:"source_key" validate:"max=128"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationListResponse wraps a page of notifications with the unread count.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int64                  `json:"unread"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Title:     model.Title,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
