package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

func seedGradedCourse(t *testing.T, env *testEnv) (models.Course, models.Student) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	course := env.seedCourse(t, "BIO1")
	student := env.seedStudent(t, "eka@example.com")

	essay := env.seedAssignment(t, course.ID, models.Assignment{Title: "Essay", MaxPoints: 100, DueAt: now})
	lab := env.seedAssignment(t, course.ID, models.Assignment{Title: "Lab", MaxPoints: 100, DueAt: now})

	first := env.seedSubmission(t, models.Submission{AssignmentID: essay.ID, StudentID: student.ID, AttemptNumber: 1, Status: models.SubmissionStatusGraded, SubmittedAt: &now})
	second := env.seedSubmission(t, models.Submission{AssignmentID: essay.ID, StudentID: student.ID, AttemptNumber: 2, Status: models.SubmissionStatusGraded, SubmittedAt: &now})
	draftOnly := env.seedSubmission(t, models.Submission{AssignmentID: lab.ID, StudentID: student.ID, AttemptNumber: 1, Status: models.SubmissionStatusSubmitted, SubmittedAt: &now})

	grade := func(submissionID uint, points float64, published bool) {
		require.NoError(t, env.submissions.AppendGrade(ctx, &models.Grade{
			SubmissionID:          submissionID,
			PointsAwarded:         points,
			MaxPoints:             100,
			MaxPointsAfterPenalty: 100,
			IsPublished:           published,
			GradedBy:              1,
			GradedAt:              now,
		}))
	}
	grade(first.ID, 70, true)
	grade(second.ID, 90, true)
	grade(draftOnly.ID, 100, false)

	quiz := models.Quiz{CourseID: course.ID, Title: "Quiz 1", Kind: models.QuizKindQuiz, MaxPoints: 20}
	require.NoError(t, env.courses.CreateQuiz(ctx, &quiz))
	exam := models.Quiz{CourseID: course.ID, Title: "Exam", Kind: models.QuizKindExam, MaxPoints: 50}
	require.NoError(t, env.courses.CreateQuiz(ctx, &exam))

	for _, attempt := range []models.QuizAttempt{
		{QuizID: quiz.ID, StudentID: student.ID, PointsAwarded: 10, MaxPoints: 20, CompletedAt: now},
		{QuizID: quiz.ID, StudentID: student.ID, PointsAwarded: 15, MaxPoints: 20, CompletedAt: now},
		{QuizID: exam.ID, StudentID: student.ID, PointsAwarded: 50, MaxPoints: 50, CompletedAt: now},
	} {
		attempt := attempt
		require.NoError(t, env.courses.CreateQuizAttempt(ctx, &attempt))
	}

	return course, student
}

func TestCourseGradeServiceRecomputeAggregatesPublishedWork(t *testing.T) {
	env := newTestEnv(t)
	course, student := seedGradedCourse(t, env)
	svc := env.courseGradeService()

	result, err := svc.Recompute(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 105.0, result.PointsEarned)
	require.Equal(t, 120.0, result.PointsTotal)
	require.Equal(t, 87.5, result.Percentage)
	require.Equal(t, "B", result.Letter)
	require.Equal(t, 2, result.ItemsCounted)
}

func TestCourseGradeServiceRecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	course, student := seedGradedCourse(t, env)
	svc := env.courseGradeService()

	first, err := svc.Recompute(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	require.Equal(t, first.PointsEarned, second.PointsEarned)
	require.Equal(t, first.Percentage, second.Percentage)
	require.Equal(t, first.Letter, second.Letter)

	var rows int64
	require.NoError(t, env.db.Model(&models.CourseGrade{}).Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestCourseGradeServiceGetReadsThroughCache(t *testing.T) {
	env := newTestEnv(t)
	course, student := seedGradedCourse(t, env)
	svc := env.courseGradeService()
	ctx := context.Background()

	got, err := svc.Get(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 87.5, got.Percentage)

	// The first read computes the missing row; the second fills the cache.
	got, err = svc.Get(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.True(t, env.mini.Exists(cacheKey(student.ID, course.ID)))

	_, err = svc.Recompute(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.False(t, env.mini.Exists(cacheKey(student.ID, course.ID)))

	byUser, err := svc.GetForUser(ctx, student.UserID, course.ID)
	require.NoError(t, err)
	require.Equal(t, got.PointsEarned, byUser.PointsEarned)

	_, err = svc.Get(ctx, student.ID, 9999)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseGradeServiceGetUnknownStudentStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t, "CHEM1")
	svc := env.courseGradeService()

	_, err := svc.Get(context.Background(), 4242, course.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)

	var rows int64
	require.NoError(t, env.db.Model(&models.CourseGrade{}).Count(&rows).Error)
	require.Zero(t, rows)
}

func TestCourseGradeServiceCoalescesRecomputeRequests(t *testing.T) {
	env := newTestEnv(t)
	svc := env.courseGradeService()
	ctx := context.Background()

	queued, err := svc.RequestRecompute(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, queued)

	queued, err = svc.RequestRecompute(ctx, 1, 2)
	require.NoError(t, err)
	require.False(t, queued)

	queued, err = svc.RequestRecompute(ctx, 1, 3)
	require.NoError(t, err)
	require.True(t, queued)

	svc.ClearPending(ctx, 1, 2)
	queued, err = svc.RequestRecompute(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, queued)

	require.Equal(t, 3, env.queue.CountDispatched(JobCourseGradeRecompute))
}

func TestCourseGradeServiceWithoutRedisAlwaysDispatches(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseGradeService(env.courseGrades, env.courses, env.submissions, env.students, env.queue, nil, 0, testLogger())

	for i := 0; i < 2; i++ {
		queued, err := svc.RequestRecompute(context.Background(), 1, 2)
		require.NoError(t, err)
		require.True(t, queued)
	}
	require.Equal(t, 2, env.queue.CountDispatched(JobCourseGradeRecompute))
}
