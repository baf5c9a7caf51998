package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

func TestChunk(t *testing.T) {
	cases := []struct {
		name  string
		items int
		size  int
		want  []int
	}{
		{name: "empty", items: 0, size: 500, want: nil},
		{name: "smaller than chunk", items: 3, size: 500, want: []int{3}},
		{name: "exact multiple", items: 1000, size: 500, want: []int{500, 500}},
		{name: "remainder", items: 1200, size: 500, want: []int{500, 500, 200}},
		{name: "non positive size keeps one chunk", items: 4, size: 0, want: []int{4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]int, tc.items)
			for i := range items {
				items[i] = i
			}

			chunks := Chunk(items, tc.size)
			var sizes []int
			next := 0
			for _, chunk := range chunks {
				sizes = append(sizes, len(chunk))
				for _, item := range chunk {
					require.Equal(t, next, item)
					next++
				}
			}
			require.Equal(t, tc.want, sizes)
		})
	}
}

func TestFanoutSplitsAudienceIntoChunks(t *testing.T) {
	env := newJobEnv(t)
	env.seedUsers(t, 1200, models.RoleStudent)
	env.seedUsers(t, 5, models.RoleInstructor)
	announcement := env.seedAnnouncement(t, models.Announcement{Audience: models.AudienceStudents})

	job := NewFanoutJob(env.announcements, env.users, env.queue, 500, testLogger())
	err := job.Handle(context.Background(), envelope(t, service.JobAnnouncementFanout, service.FanoutPayload{AnnouncementID: announcement.ID}))
	require.NoError(t, err)

	require.Equal(t, 3, env.queue.CountDispatched(service.JobNotifyInApp))
	require.Zero(t, env.queue.CountDispatched(service.JobNotifyEmail))

	var sizes []int
	for _, pending := range env.queue.Pending() {
		var payload service.NotifyChunkPayload
		require.NoError(t, pending.Decode(&payload))
		require.Equal(t, announcement.ID, payload.AnnouncementID)
		sizes = append(sizes, len(payload.UserIDs))
	}
	require.Equal(t, []int{500, 500, 200}, sizes)

	stored, err := env.announcements.GetByID(context.Background(), announcement.ID)
	require.NoError(t, err)
	require.Equal(t, 1200, stored.Recipients)
	require.Equal(t, 3, stored.Chunks)
	require.NotNil(t, stored.DispatchedAt)
}

func TestFanoutDispatchesEmailChunksWhenRequested(t *testing.T) {
	env := newJobEnv(t)
	env.seedUsers(t, 7, models.RoleStudent)
	announcement := env.seedAnnouncement(t, models.Announcement{SendEmail: true})

	job := NewFanoutJob(env.announcements, env.users, env.queue, 3, testLogger())
	require.NoError(t, job.Handle(context.Background(), envelope(t, service.JobAnnouncementFanout, service.FanoutPayload{AnnouncementID: announcement.ID})))

	require.Equal(t, 3, env.queue.CountDispatched(service.JobNotifyInApp))
	require.Equal(t, 3, env.queue.CountDispatched(service.JobNotifyEmail))
}

type failingQueue struct {
	*queue.MemoryQueue
	calls  int
	failAt int
}

func (q *failingQueue) Dispatch(ctx context.Context, env queue.Envelope) error {
	q.calls++
	if q.calls == q.failAt {
		return errors.New("broker unavailable")
	}
	return q.MemoryQueue.Dispatch(ctx, env)
}

func TestFanoutRetryResumesAfterQueuedChunks(t *testing.T) {
	env := newJobEnv(t)
	env.seedUsers(t, 1200, models.RoleStudent)
	announcement := env.seedAnnouncement(t, models.Announcement{SendEmail: true})

	// in-app 1, email 1, in-app 2 succeed, email 2 fails
	q := &failingQueue{MemoryQueue: env.queue, failAt: 4}
	job := NewFanoutJob(env.announcements, env.users, q, 500, testLogger())
	payload := envelope(t, service.JobAnnouncementFanout, service.FanoutPayload{AnnouncementID: announcement.ID})

	require.Error(t, job.Handle(context.Background(), payload))
	require.NoError(t, job.Handle(context.Background(), payload))

	require.Equal(t, 3, env.queue.CountDispatched(service.JobNotifyInApp))
	require.Equal(t, 3, env.queue.CountDispatched(service.JobNotifyEmail))

	seen := map[string]map[int]bool{service.JobNotifyInApp: {}, service.JobNotifyEmail: {}}
	for _, pending := range env.queue.Pending() {
		var chunk service.NotifyChunkPayload
		require.NoError(t, pending.Decode(&chunk))
		require.False(t, seen[pending.Name][chunk.Chunk], "%s chunk %d queued twice", pending.Name, chunk.Chunk)
		seen[pending.Name][chunk.Chunk] = true
	}
	require.Len(t, seen[service.JobNotifyEmail], 3)

	stored, err := env.announcements.GetByID(context.Background(), announcement.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DispatchedAt)
	require.Equal(t, 3, stored.InAppChunksQueued)
	require.Equal(t, 3, stored.EmailChunksQueued)
}

func TestFanoutSkipsDispatchedAnnouncement(t *testing.T) {
	env := newJobEnv(t)
	env.seedUsers(t, 2, models.RoleStudent)
	announcement := env.seedAnnouncement(t, models.Announcement{})

	job := NewFanoutJob(env.announcements, env.users, env.queue, 500, testLogger())
	payload := service.FanoutPayload{AnnouncementID: announcement.ID}
	require.NoError(t, job.Handle(context.Background(), envelope(t, service.JobAnnouncementFanout, payload)))
	require.NoError(t, job.Handle(context.Background(), envelope(t, service.JobAnnouncementFanout, payload)))

	require.Equal(t, 1, env.queue.CountDispatched(service.JobNotifyInApp))
}

func TestFanoutDeletesJobForMissingAnnouncement(t *testing.T) {
	env := newJobEnv(t)

	job := NewFanoutJob(env.announcements, env.users, env.queue, 500, testLogger())
	err := job.Handle(context.Background(), envelope(t, service.JobAnnouncementFanout, service.FanoutPayload{AnnouncementID: 404}))

	require.True(t, errors.Is(err, queue.ErrDeleteJob))
	require.ErrorIs(t, err, service.ErrAnnouncementNotFound)
	require.Empty(t, env.queue.History())
}

func TestFanoutRetryPolicy(t *testing.T) {
	env := newJobEnv(t)
	job := NewFanoutJob(env.announcements, env.users, env.queue, 0, testLogger())

	policy := job.RetryPolicy()
	require.Equal(t, 3, policy.Tries)
	require.Equal(t, DefaultChunkSize, job.chunkSize)
}
