package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Audit actions written by the grading, progress, admission and announcement flows.
const (
	ActionGradeDrafted        = "grade.drafted"
	ActionGradePublished      = "grade.published"
	ActionRetakeUnlocked      = "module.retake_unlocked"
	ActionApplicationApproved = "admission.approved"
	ActionApplicationRejected = "admission.rejected"
	ActionAnnouncementCreated = "announcement.created"
)

// ActivityLog captures auditable events triggered by administrators and instructors.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"index;not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;index;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
