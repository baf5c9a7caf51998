package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedStudent(t *testing.T, db *gorm.DB, email string, programID *uint) models.Student {
	t.Helper()
	user := seedUser(t, db, email, models.RoleStudent)
	student := models.Student{UserID: user.ID, ProgramID: programID, StudentNumber: "S-" + email, Name: email, Email: email}
	require.NoError(t, db.Omit("User").Create(&student).Error)
	return student
}
