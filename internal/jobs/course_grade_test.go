package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

type stubRecomputer struct {
	calls []string
	err   error
}

func (s *stubRecomputer) Recompute(_ context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error) {
	s.calls = append(s.calls, "recompute")
	if s.err != nil {
		return dto.CourseGradeResponse{}, s.err
	}
	return dto.CourseGradeResponse{StudentID: studentID, CourseID: courseID}, nil
}

func (s *stubRecomputer) ClearPending(context.Context, uint, uint) {
	s.calls = append(s.calls, "clear")
}

func TestCourseGradeJobClearsPendingBeforeRecompute(t *testing.T) {
	stub := &stubRecomputer{}
	job := NewCourseGradeJob(stub, testLogger())

	err := job.Handle(context.Background(), envelope(t, service.JobCourseGradeRecompute, service.CourseGradePayload{StudentID: 3, CourseID: 9}))
	require.NoError(t, err)
	require.Equal(t, []string{"clear", "recompute"}, stub.calls)
}

func TestCourseGradeJobRetriesOnFailure(t *testing.T) {
	stub := &stubRecomputer{err: errors.New("database unavailable")}
	q := queue.NewMemoryQueue(queue.WithoutDelays())
	worker := queue.NewWorker(q, testLogger())
	worker.Register(NewCourseGradeJob(stub, testLogger()))

	_, err := queue.Dispatch(context.Background(), q, service.JobCourseGradeRecompute, service.CourseGradePayload{StudentID: 1, CourseID: 1})
	require.NoError(t, err)

	require.Equal(t, 3, q.Drain(context.Background(), worker))
	require.Equal(t, 3, q.CountDispatched(service.JobCourseGradeRecompute))
}
