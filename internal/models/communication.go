package models

import "time"

// Announcement audiences.
const (
	AudienceAll         = "all"
	AudienceStudents    = "students"
	AudienceInstructors = "instructors"
	AudienceAdmins      = "admins"
	AudienceProgram     = "program"
)

// Announcement is a broadcast message delivered to an audience through notification jobs.
type Announcement struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Slug              string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Body              string     `gorm:"type:text;not null" json:"body"`
	Audience          string     `gorm:"size:32;not null" json:"audience"`
	ProgramID         *uint      `gorm:"index" json:"program_id"`
	SendEmail         bool       `gorm:"not null;default:false" json:"send_email"`
	CreatedBy         uint       `gorm:"not null" json:"created_by"`
	Recipients        int        `gorm:"not null;default:0" json:"recipients"`
	Chunks            int        `gorm:"not null;default:0" json:"chunks"`
	// Chunks already queued per channel, so a retried fan-out resumes after them.
	InAppChunksQueued int        `gorm:"not null;default:0" json:"-"`
	EmailChunksQueued int        `gorm:"not null;default:0" json:"-"`
	DispatchedAt      *time.Time `json:"dispatched_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SourceKey identifies notifications produced for this announcement.
func (a Announcement) SourceKey() string {
	return "announcement:" + uintString(a.ID)
}

// Notification is an in-app message targeted to a specific user.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_notification_user_source;not null" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Title     string    `gorm:"size:255" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	SourceKey *string   `gorm:"size:128;uniqueIndex:idx_notification_user_source" json:"source_key,omitempty"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
