package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

// DefaultChunkSize bounds how many recipients one delivery job handles.
const DefaultChunkSize = 500

// RecipientResolver maps an audience to user ids.
type RecipientResolver interface {
	RecipientIDs(ctx context.Context, audience string, programID *uint) ([]uint, error)
}

// FanoutJob splits an announcement audience into delivery chunks.
type FanoutJob struct {
	announcements repository.AnnouncementRepository
	recipients    RecipientResolver
	queue         queue.Queue
	chunkSize     int
	logger        zerolog.Logger
	now           func() time.Time
}

// NewFanoutJob constructs the fan-out handler.
func NewFanoutJob(announcements repository.AnnouncementRepository, recipients RecipientResolver, q queue.Queue, chunkSize int, logger zerolog.Logger) *FanoutJob {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &FanoutJob{
		announcements: announcements,
		recipients:    recipients,
		queue:         q,
		chunkSize:     chunkSize,
		logger:        logger.With().Str("component", "fanout_job").Logger(),
		now:           time.Now,
	}
}

func (j *FanoutJob) Name() string { return service.JobAnnouncementFanout }

func (j *FanoutJob) RetryPolicy() queue.RetryPolicy { return deliveryRetry() }

func (j *FanoutJob) Handle(ctx context.Context, env queue.Envelope) error {
	var payload service.FanoutPayload
	if err := env.Decode(&payload); err != nil {
		return queue.Delete(err)
	}

	announcement, err := j.announcements.GetByID(ctx, payload.AnnouncementID)
	if err != nil {
		if repository.IsNotFound(err) {
			return queue.Delete(fmt.Errorf("announcement %d: %w", payload.AnnouncementID, service.ErrAnnouncementNotFound))
		}
		return err
	}
	if announcement.DispatchedAt != nil {
		j.logger.Info().Uint("announcement_id", announcement.ID).Msg("announcement already dispatched")
		return nil
	}

	ids, err := j.recipients.RecipientIDs(ctx, announcement.Audience, announcement.ProgramID)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	// Recipients come back ordered by id, so chunk n is stable across retries.
	chunks := Chunk(ids, j.chunkSize)
	for i, chunk := range chunks {
		if err := j.dispatchChunk(ctx, announcement, i+1, chunk); err != nil {
			return err
		}
	}
	if announcement.InAppChunksQueued > 0 {
		j.logger.Info().
			Uint("announcement_id", announcement.ID).
			Int("in_app_resumed_after", announcement.InAppChunksQueued).
			Int("email_resumed_after", announcement.EmailChunksQueued).
			Msg("fan-out resumed")
	}

	if err := j.announcements.MarkDispatched(ctx, announcement.ID, len(ids), len(chunks), j.now().UTC()); err != nil {
		return err
	}

	j.logger.Info().
		Uint("announcement_id", announcement.ID).
		Int("recipients", len(ids)).
		Int("chunks", len(chunks)).
		Bool("email", announcement.SendEmail).
		Msg("announcement fanned out")
	return nil
}

func (j *FanoutJob) dispatchChunk(ctx context.Context, announcement models.Announcement, index int, userIDs []uint) error {
	payload := service.NotifyChunkPayload{
		AnnouncementID: announcement.ID,
		Chunk:          index,
		UserIDs:        userIDs,
	}

	if index > announcement.InAppChunksQueued {
		if err := j.queueChunk(ctx, announcement.ID, repository.ChannelInApp, service.JobNotifyInApp, payload); err != nil {
			return err
		}
	}
	if announcement.SendEmail && index > announcement.EmailChunksQueued {
		if err := j.queueChunk(ctx, announcement.ID, repository.ChannelEmail, service.JobNotifyEmail, payload); err != nil {
			return err
		}
	}
	return nil
}

func (j *FanoutJob) queueChunk(ctx context.Context, announcementID uint, channel, job string, payload service.NotifyChunkPayload) error {
	if _, err := queue.Dispatch(ctx, j.queue, job, payload); err != nil {
		return fmt.Errorf("queue %s chunk %d: %w", channel, payload.Chunk, err)
	}
	return j.announcements.MarkChunkQueued(ctx, announcementID, channel, payload.Chunk)
}
