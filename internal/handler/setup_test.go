package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
	"github.com/noah-isme/gema-lms-api/pkg/cloudinary"
)

type storedAttachment struct{}

func (storedAttachment) UploadAttachment(_ context.Context, key cloudinary.AttachmentKey, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + cloudinary.PublicID(key, name), nil
}

type testApp struct {
	app           *fiber.App
	db            *gorm.DB
	queue         *queue.MemoryQueue
	notifications service.NotificationService
}

// testAuth stands in for JWT validation: identity comes from test headers.
func testAuth(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
	if err != nil || id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
	}
	c.Locals("user_id", uint(id))
	c.Locals("user_role", c.Get("X-Test-Role"))
	return c.Next()
}

func newTestApp(t *testing.T, checks ...handler.HealthDependency) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mini := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.Nop()
	validate := utils.NewValidator()
	q := queue.NewMemoryQueue(queue.WithoutDelays())

	students := repository.NewStudentRepository(db)
	courses := repository.NewCourseRepository(db)
	submissions := repository.NewSubmissionRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, nil, "", validate, logger)
	courseGrades := service.NewCourseGradeService(repository.NewCourseGradeRepository(db), courses, submissions, students, q, redisClient, time.Minute, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "GEMA LMS Test", AppEnv: "test"}, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(
			service.NewSubmissionService(submissions, courses, students, storedAttachment{}, validate, logger), logger),
		GradingHandler: handler.NewGradingHandler(
			service.NewGradingService(submissions, validate, notifications, courseGrades, activity, logger), logger),
		CourseHandler: handler.NewCourseHandler(service.NewCourseService(courses, validate, logger), courseGrades, logger),
		ProgressHandler: handler.NewProgressHandler(
			service.NewProgressService(repository.NewProgressRepository(db), courses, students, courseGrades, activity, validate, logger), logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, time.Second),
		AnnouncementHandler: handler.NewAnnouncementHandler(
			service.NewAnnouncementService(repository.NewAnnouncementRepository(db), q, validate, activity, logger), logger),
		AdmissionHandler: handler.NewAdmissionHandler(
			service.NewAdmissionService(repository.NewApplicationRepository(db), q, validate, activity, logger), logger),
		ActivityHandler:    handler.NewActivityHandler(activity, logger),
		HealthChecks:       checks,
		JWTMiddleware:      testAuth,
		AdmissionRateLimit: 100,
	})

	return &testApp{app: app, db: db, queue: q, notifications: notifications}
}

type identity struct {
	id   uint
	role string
}

var anonymous = identity{}

func (a *testApp) seedStaff(t *testing.T, email string) identity {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: models.RoleInstructor, Status: models.UserStatusActive}
	require.NoError(t, a.db.Create(&user).Error)
	return identity{id: user.ID, role: models.RoleInstructor}
}

func (a *testApp) seedStudent(t *testing.T, email string) (identity, models.Student) {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: models.RoleStudent, Status: models.UserStatusActive}
	require.NoError(t, a.db.Create(&user).Error)
	student := models.Student{UserID: user.ID, StudentNumber: "S-" + email, Name: email, Email: email}
	require.NoError(t, a.db.Omit("User").Create(&student).Error)
	return identity{id: user.ID, role: models.RoleStudent}, student
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (a *testApp) do(t *testing.T, who identity, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(t, who, req)
}

func (a *testApp) send(t *testing.T, who identity, req *http.Request) (int, envelope) {
	t.Helper()
	if who.id != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(who.id), 10))
		req.Header.Set("X-Test-Role", who.role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
