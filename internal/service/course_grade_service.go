package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

const coursePendingTTL = 30 * time.Second

// RecomputeRequester schedules a course grade recompute.
type RecomputeRequester interface {
	RequestRecompute(ctx context.Context, studentID, courseID uint) (bool, error)
}

// CourseGradeService reads and maintains aggregated course grades.
type CourseGradeService interface {
	RecomputeRequester
	Get(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error)
	GetForUser(ctx context.Context, userID, courseID uint) (dto.CourseGradeResponse, error)
	Recompute(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error)
	ClearPending(ctx context.Context, studentID, courseID uint)
}

type courseGradeService struct {
	grades      repository.CourseGradeRepository
	courses     repository.CourseRepository
	submissions repository.SubmissionRepository
	students    repository.StudentRepository
	queue       queue.Queue
	redis       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCourseGradeService constructs the course grade service. The Redis client is optional.
func NewCourseGradeService(
	grades repository.CourseGradeRepository,
	courses repository.CourseRepository,
	submissions repository.SubmissionRepository,
	students repository.StudentRepository,
	q queue.Queue,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) CourseGradeService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &courseGradeService{
		grades:      grades,
		courses:     courses,
		submissions: submissions,
		students:    students,
		queue:       q,
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "course_grade_service").Logger(),
		now:         time.Now,
	}
}

func cacheKey(studentID, courseID uint) string {
	return fmt.Sprintf("course_grade:%d:%d", studentID, courseID)
}

func pendingKey(studentID, courseID uint) string {
	return fmt.Sprintf("course_grade:pending:%d:%d", studentID, courseID)
}

func (s *courseGradeService) Get(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error) {
	if cached, ok := s.readCache(ctx, studentID, courseID); ok {
		return cached, nil
	}

	if _, err := s.courses.GetCourse(ctx, courseID); err != nil {
		if repository.IsNotFound(err) {
			return dto.CourseGradeResponse{}, ErrCourseNotFound
		}
		return dto.CourseGradeResponse{}, err
	}

	grade, err := s.grades.Get(ctx, studentID, courseID)
	if err != nil {
		if !repository.IsNotFound(err) {
			return dto.CourseGradeResponse{}, err
		}
		if _, err := s.students.GetByID(ctx, studentID); err != nil {
			if repository.IsNotFound(err) {
				return dto.CourseGradeResponse{}, ErrStudentNotFound
			}
			return dto.CourseGradeResponse{}, err
		}
		return s.Recompute(ctx, studentID, courseID)
	}

	response := dto.NewCourseGradeResponse(grade)
	s.writeCache(ctx, response)
	return response, nil
}

func (s *courseGradeService) GetForUser(ctx context.Context, userID, courseID uint) (dto.CourseGradeResponse, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.CourseGradeResponse{}, ErrStudentNotFound
		}
		return dto.CourseGradeResponse{}, err
	}
	return s.Get(ctx, student.ID, courseID)
}

// RequestRecompute dispatches a recompute unless one is already pending for the pair.
func (s *courseGradeService) RequestRecompute(ctx context.Context, studentID, courseID uint) (bool, error) {
	if s.redis != nil {
		acquired, err := s.redis.SetNX(ctx, pendingKey(studentID, courseID), s.now().UTC().Format(time.RFC3339), coursePendingTTL).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("course grade coalescing unavailable, dispatching anyway")
		} else if !acquired {
			observability.CourseGradeRecomputes().WithLabelValues("coalesced").Inc()
			return false, nil
		}
	}

	if _, err := queue.Dispatch(ctx, s.queue, JobCourseGradeRecompute, CourseGradePayload{StudentID: studentID, CourseID: courseID}); err != nil {
		s.ClearPending(ctx, studentID, courseID)
		return false, err
	}

	observability.CourseGradeRecomputes().WithLabelValues("dispatched").Inc()
	return true, nil
}

// ClearPending releases the coalescing key so later changes dispatch again.
func (s *courseGradeService) ClearPending(ctx context.Context, studentID, courseID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, pendingKey(studentID, courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear course grade pending key")
	}
}

// Recompute aggregates the current published grades and best quiz attempts.
func (s *courseGradeService) Recompute(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/course_grade")
	ctx, span := tracer.Start(ctx, "course_grade.recompute")
	span.SetAttributes(
		attribute.Int64("course_grade.student_id", int64(studentID)),
		attribute.Int64("course_grade.course_id", int64(courseID)),
	)
	defer span.End()

	contributions, err := s.contributions(ctx, studentID, courseID)
	if err != nil {
		span.RecordError(err)
		return dto.CourseGradeResponse{}, err
	}

	totals := grading.Aggregate(contributions)
	row := models.CourseGrade{
		StudentID:    studentID,
		CourseID:     courseID,
		PointsEarned: totals.PointsEarned,
		PointsTotal:  totals.PointsTotal,
		Percentage:   totals.Percentage,
		Letter:       totals.Letter,
		ItemsCounted: totals.ItemsCounted,
		ComputedAt:   s.now().UTC(),
	}
	if err := s.grades.Upsert(ctx, &row); err != nil {
		span.RecordError(err)
		return dto.CourseGradeResponse{}, err
	}

	s.invalidateCache(ctx, studentID, courseID)
	observability.CourseGradeRecomputes().WithLabelValues("computed").Inc()
	span.SetAttributes(attribute.Float64("course_grade.percentage", totals.Percentage))

	return dto.NewCourseGradeResponse(row), nil
}

func (s *courseGradeService) contributions(ctx context.Context, studentID, courseID uint) ([]grading.Contribution, error) {
	assignments, err := s.courses.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, err
	}

	items := make([]grading.Contribution, 0, len(assignments))
	for _, assignment := range assignments {
		grade, err := s.submissions.LatestPublishedGrade(ctx, assignment.ID, studentID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		items = append(items, grading.Contribution{
			Source:        "assignment",
			SourceID:      assignment.ID,
			PointsAwarded: grade.PointsAwarded,
			MaxPoints:     grade.MaxPoints,
		})
	}

	quizzes, err := s.courses.ListQuizzes(ctx, courseID, models.QuizKindQuiz)
	if err != nil {
		return nil, err
	}
	for _, quiz := range quizzes {
		attempt, err := s.courses.BestQuizAttempt(ctx, quiz.ID, studentID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		items = append(items, grading.Contribution{
			Source:        "quiz",
			SourceID:      quiz.ID,
			PointsAwarded: attempt.PointsAwarded,
			MaxPoints:     attempt.MaxPoints,
		})
	}

	return items, nil
}

func (s *courseGradeService) readCache(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, bool) {
	if s.redis == nil {
		return dto.CourseGradeResponse{}, false
	}

	raw, err := s.redis.Get(ctx, cacheKey(studentID, courseID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read course grade cache")
		}
		return dto.CourseGradeResponse{}, false
	}

	var cached dto.CourseGradeResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode course grade cache")
		return dto.CourseGradeResponse{}, false
	}
	return cached, true
}

func (s *courseGradeService) writeCache(ctx context.Context, response dto.CourseGradeResponse) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(response.StudentID, response.CourseID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write course grade cache")
	}
}

func (s *courseGradeService) invalidateCache(ctx context.Context, studentID, courseID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(studentID, courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate course grade cache")
	}
}
