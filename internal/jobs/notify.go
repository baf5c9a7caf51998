package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	mailer "github.com/noah-isme/gema-lms-api/internal/mail"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

// Default per-second delivery rates.
const (
	DefaultInAppRate = 100
	DefaultEmailRate = 50
)

const announcementNotificationType = "announcement"

// UserLookup loads the users of an email chunk.
type UserLookup interface {
	ListByIDs(ctx context.Context, ids []uint) ([]models.User, error)
}

// ChunkResult counts outcomes inside one delivery chunk.
type ChunkResult struct {
	Delivered int
	Skipped   int
	Failed    int
}

// InAppJob writes announcement notifications for one recipient chunk.
type InAppJob struct {
	announcements repository.AnnouncementRepository
	notifier      service.Notifier
	perSecond     int
	logger        zerolog.Logger
}

// NewInAppJob constructs the in-app delivery handler. Each execution is
// throttled to perSecond on its own limiter.
func NewInAppJob(announcements repository.AnnouncementRepository, notifier service.Notifier, perSecond int, logger zerolog.Logger) *InAppJob {
	return &InAppJob{
		announcements: announcements,
		notifier:      notifier,
		perSecond:     perSecond,
		logger:        logger.With().Str("component", "in_app_job").Logger(),
	}
}

func (j *InAppJob) Name() string { return service.JobNotifyInApp }

func (j *InAppJob) RetryPolicy() queue.RetryPolicy { return deliveryRetry() }

func (j *InAppJob) Handle(ctx context.Context, env queue.Envelope) error {
	payload, announcement, err := loadChunk(ctx, j.announcements, env)
	if err != nil {
		return err
	}

	result, err := j.Deliver(ctx, announcement, payload.UserIDs)
	if err != nil {
		return err
	}

	j.logger.Info().
		Uint("announcement_id", announcement.ID).
		Int("chunk", payload.Chunk).
		Int("delivered", result.Delivered).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("in-app chunk delivered")
	return nil
}

// Deliver publishes the announcement to each user. A retried chunk skips users
// that already hold the notification.
func (j *InAppJob) Deliver(ctx context.Context, announcement models.Announcement, userIDs []uint) (ChunkResult, error) {
	var result ChunkResult
	message := bluemonday.StrictPolicy().Sanitize(announcement.Body)
	if message == "" {
		message = announcement.Title
	}

	limiter := newLimiter(j.perSecond)
	for _, userID := range userIDs {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		_, err := j.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:    userID,
			Type:      announcementNotificationType,
			Title:     announcement.Title,
			Message:   truncate(message, 2000),
			SourceKey: announcement.SourceKey(),
		})
		switch {
		case err == nil:
			result.Delivered++
			observability.NotificationsDelivered().WithLabelValues("in_app", "delivered").Inc()
		case errors.Is(err, service.ErrDuplicateNotification):
			result.Skipped++
			observability.NotificationsDelivered().WithLabelValues("in_app", "skipped").Inc()
		default:
			result.Failed++
			observability.NotificationsDelivered().WithLabelValues("in_app", "failed").Inc()
			j.logger.Warn().Err(err).Uint("user_id", userID).Uint("announcement_id", announcement.ID).Msg("in-app delivery failed")
		}
	}
	return result, nil
}

// EmailJob emails an announcement to one recipient chunk.
type EmailJob struct {
	announcements repository.AnnouncementRepository
	users         UserLookup
	mailer        mailer.Mailer
	perSecond     int
	logger        zerolog.Logger
}

// NewEmailJob constructs the email delivery handler. Each execution is
// throttled to perSecond on its own limiter.
func NewEmailJob(announcements repository.AnnouncementRepository, users UserLookup, m mailer.Mailer, perSecond int, logger zerolog.Logger) *EmailJob {
	return &EmailJob{
		announcements: announcements,
		users:         users,
		mailer:        m,
		perSecond:     perSecond,
		logger:        logger.With().Str("component", "email_job").Logger(),
	}
}

func (j *EmailJob) Name() string { return service.JobNotifyEmail }

func (j *EmailJob) RetryPolicy() queue.RetryPolicy { return deliveryRetry() }

func (j *EmailJob) Handle(ctx context.Context, env queue.Envelope) error {
	payload, announcement, err := loadChunk(ctx, j.announcements, env)
	if err != nil {
		return err
	}

	users, err := j.users.ListByIDs(ctx, payload.UserIDs)
	if err != nil {
		return fmt.Errorf("load chunk users: %w", err)
	}

	var result ChunkResult
	text := bluemonday.StrictPolicy().Sanitize(announcement.Body)
	limiter := newLimiter(j.perSecond)
	for _, user := range users {
		if user.Status != models.UserStatusActive {
			result.Skipped++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		err := j.mailer.Send(ctx, mailer.Message{
			To:       mail.Address{Name: user.Name, Address: user.Email},
			Subject:  announcement.Title,
			TextBody: text,
			HTMLBody: announcement.Body,
		})
		if err != nil {
			result.Failed++
			observability.NotificationsDelivered().WithLabelValues("email", "failed").Inc()
			j.logger.Warn().Err(err).Uint("user_id", user.ID).Uint("announcement_id", announcement.ID).Msg("announcement email failed")
			continue
		}
		result.Delivered++
		observability.NotificationsDelivered().WithLabelValues("email", "delivered").Inc()
	}

	j.logger.Info().
		Uint("announcement_id", announcement.ID).
		Int("chunk", payload.Chunk).
		Int("delivered", result.Delivered).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("email chunk delivered")
	return nil
}

func loadChunk(ctx context.Context, announcements repository.AnnouncementRepository, env queue.Envelope) (service.NotifyChunkPayload, models.Announcement, error) {
	var payload service.NotifyChunkPayload
	if err := env.Decode(&payload); err != nil {
		return payload, models.Announcement{}, queue.Delete(err)
	}

	announcement, err := announcements.GetByID(ctx, payload.AnnouncementID)
	if err != nil {
		if repository.IsNotFound(err) {
			return payload, models.Announcement{}, queue.Delete(fmt.Errorf("announcement %d: %w", payload.AnnouncementID, service.ErrAnnouncementNotFound))
		}
		return payload, models.Announcement{}, err
	}
	return payload, announcement, nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
