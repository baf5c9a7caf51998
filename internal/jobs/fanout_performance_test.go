package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

func TestFanoutTenThousandRecipients(t *testing.T) {
	if testing.Short() {
		t.Skip("seeds ten thousand users")
	}

	env := newJobEnv(t)
	env.seedUsers(t, 10000, models.RoleStudent)
	announcement := env.seedAnnouncement(t, models.Announcement{Audience: models.AudienceStudents})

	notifier := newRecordingNotifier()
	worker := queue.NewWorker(env.queue, testLogger())
	worker.Register(
		NewFanoutJob(env.announcements, env.users, env.queue, DefaultChunkSize, testLogger()),
		NewInAppJob(env.announcements, notifier, 0, testLogger()),
	)

	_, err := queue.Dispatch(context.Background(), env.queue, service.JobAnnouncementFanout, service.FanoutPayload{AnnouncementID: announcement.ID})
	require.NoError(t, err)

	start := time.Now()
	processed := env.queue.Drain(context.Background(), worker)
	elapsed := time.Since(start)

	require.Equal(t, 21, processed)
	require.Equal(t, 20, env.queue.CountDispatched(service.JobNotifyInApp))
	require.Equal(t, 10000, notifier.count())
	require.Less(t, elapsed, 30*time.Second)

	stored, err := env.announcements.GetByID(context.Background(), announcement.ID)
	require.NoError(t, err)
	require.Equal(t, 10000, stored.Recipients)
	require.Equal(t, 20, stored.Chunks)
}

func BenchmarkChunk(b *testing.B) {
	ids := make([]uint, 10000)
	for i := range ids {
		ids[i] = uint(i + 1)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Chunk(ids, DefaultChunkSize)
	}
}
