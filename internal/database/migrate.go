package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Program{},
		&models.Student{},
		&models.StudentApplication{},
		&models.Course{},
		&models.Module{},
		&models.Assignment{},
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.Submission{},
		&models.Grade{},
		&models.ModuleProgress{},
		&models.CourseGrade{},
		&models.Announcement{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
