package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

type jobEnv struct {
	db            *gorm.DB
	queue         *queue.MemoryQueue
	users         repository.UserRepository
	announcements repository.AnnouncementRepository
	applications  repository.ApplicationRepository
}

func newJobEnv(t *testing.T) *jobEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return &jobEnv{
		db:            db,
		queue:         queue.NewMemoryQueue(queue.WithoutDelays(), queue.WithHistory()),
		users:         repository.NewUserRepository(db),
		announcements: repository.NewAnnouncementRepository(db),
		applications:  repository.NewApplicationRepository(db),
	}
}

func (e *jobEnv) seedUsers(t *testing.T, n int, role string) []models.User {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		email := fmt.Sprintf("%s-%d@example.com", role, i)
		users[i] = models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive}
	}
	require.NoError(t, e.db.CreateInBatches(&users, 200).Error)
	return users
}

func (e *jobEnv) seedAnnouncement(t *testing.T, announcement models.Announcement) models.Announcement {
	t.Helper()
	if announcement.Slug == "" {
		announcement.Slug = "announcement-" + uuid.NewString()[:8]
	}
	if announcement.Title == "" {
		announcement.Title = "Campus closed"
	}
	if announcement.Body == "" {
		announcement.Body = "<p>The campus is closed on <b>Friday</b>.</p>"
	}
	if announcement.Audience == "" {
		announcement.Audience = models.AudienceAll
	}
	if announcement.CreatedBy == 0 {
		announcement.CreatedBy = 1
	}
	require.NoError(t, e.announcements.Create(context.Background(), &announcement))
	return announcement
}

func (e *jobEnv) seedApplication(t *testing.T, email, status string) models.StudentApplication {
	t.Helper()
	application := models.StudentApplication{FirstName: "Ada", LastName: "Lovelace", Email: email, Status: status}
	require.NoError(t, e.applications.Create(context.Background(), &application))
	return application
}

func envelope(t *testing.T, name string, payload interface{}) queue.Envelope {
	t.Helper()
	env, err := queue.NewEnvelope(name, payload)
	require.NoError(t, err)
	env.Attempt = 1
	return env
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
	seen      map[string]bool
	failFor   map[uint]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{seen: make(map[string]bool), failFor: make(map[uint]bool)}
}

func (n *recordingNotifier) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failFor[payload.UserID] {
		return dto.NotificationResponse{}, fmt.Errorf("user %d unreachable", payload.UserID)
	}
	key := fmt.Sprintf("%d:%s", payload.UserID, payload.SourceKey)
	if payload.SourceKey != "" && n.seen[key] {
		return dto.NotificationResponse{}, service.ErrDuplicateNotification
	}
	n.seen[key] = true
	n.published = append(n.published, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type}, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.published)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
