package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type testEnv struct {
	db            *gorm.DB
	mini          *miniredis.Miniredis
	redis         *redis.Client
	queue         *queue.MemoryQueue
	users         repository.UserRepository
	students      repository.StudentRepository
	courses       repository.CourseRepository
	submissions   repository.SubmissionRepository
	progress      repository.ProgressRepository
	courseGrades  repository.CourseGradeRepository
	notifications repository.NotificationRepository
	announcements repository.AnnouncementRepository
	applications  repository.ApplicationRepository
	activity      ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{
		db:            db,
		mini:          mini,
		redis:         client,
		queue:         queue.NewMemoryQueue(queue.WithoutDelays(), queue.WithHistory()),
		users:         repository.NewUserRepository(db),
		students:      repository.NewStudentRepository(db),
		courses:       repository.NewCourseRepository(db),
		submissions:   repository.NewSubmissionRepository(db),
		progress:      repository.NewProgressRepository(db),
		courseGrades:  repository.NewCourseGradeRepository(db),
		notifications: repository.NewNotificationRepository(db),
		announcements: repository.NewAnnouncementRepository(db),
		applications:  repository.NewApplicationRepository(db),
		activity:      NewActivityService(repository.NewActivityLogRepository(db), testLogger()),
	}
}

func (e *testEnv) courseGradeService() *courseGradeService {
	return NewCourseGradeService(e.courseGrades, e.courses, e.submissions, e.students, e.queue, e.redis, time.Minute, testLogger()).(*courseGradeService)
}

func (e *testEnv) seedUser(t *testing.T, email, role string) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) seedStudent(t *testing.T, email string) models.Student {
	t.Helper()
	user := e.seedUser(t, email, models.RoleStudent)
	student := models.Student{UserID: user.ID, StudentNumber: "S-" + email, Name: email, Email: email}
	require.NoError(t, e.db.Omit("User").Create(&student).Error)
	student.User = user
	return student
}

func (e *testEnv) seedCourse(t *testing.T, code string) models.Course {
	t.Helper()
	course := models.Course{Code: code, Title: "Course " + code}
	require.NoError(t, e.courses.CreateCourse(context.Background(), &course))
	return course
}

func (e *testEnv) seedAssignment(t *testing.T, courseID uint, assignment models.Assignment) models.Assignment {
	t.Helper()
	assignment.CourseID = courseID
	if assignment.Title == "" {
		assignment.Title = "Assignment"
	}
	if assignment.MaxPoints == 0 {
		assignment.MaxPoints = 100
	}
	if assignment.LatePolicy == "" {
		assignment.LatePolicy = "allow"
	}
	require.NoError(t, e.courses.CreateAssignment(context.Background(), &assignment))
	return assignment
}

func (e *testEnv) seedSubmission(t *testing.T, submission models.Submission) models.Submission {
	t.Helper()
	if submission.AttemptNumber == 0 {
		submission.AttemptNumber = 1
	}
	require.NoError(t, e.submissions.Create(context.Background(), &submission))
	return submission
}

func (e *testEnv) countActivity(t *testing.T, action string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.ActivityLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}

func testValidator() *validator.Validate {
	return utils.NewValidator()
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
	err       error
}

func (f *fakeNotifier) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dto.NotificationResponse{}, f.err
	}
	f.published = append(f.published, payload)
	return dto.NotificationResponse{ID: uint(len(f.published)), UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
