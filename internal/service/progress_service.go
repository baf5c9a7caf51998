package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/progress"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// ProgressService drives module progress through the exam state machine.
type ProgressService interface {
	Start(ctx context.Context, userID, moduleID uint) (dto.ModuleProgressResponse, error)
	Get(ctx context.Context, userID, moduleID uint) (dto.ModuleProgressResponse, error)
	RecordExamAttempt(ctx context.Context, moduleID uint, req dto.QuizAttemptRequest) (dto.ExamAttemptResponse, error)
	Unlock(ctx context.Context, moduleID, studentID uint, actor ActivityActor) (dto.ModuleProgressResponse, error)
}

type progressService struct {
	progress  repository.ProgressRepository
	courses   repository.CourseRepository
	students  repository.StudentRepository
	recompute RecomputeRequester
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProgressService constructs the module progress service.
func NewProgressService(
	progressRepo repository.ProgressRepository,
	courses repository.CourseRepository,
	students repository.StudentRepository,
	recompute RecomputeRequester,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		progress:  progressRepo,
		courses:   courses,
		students:  students,
		recompute: recompute,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

func (s *progressService) Start(ctx context.Context, userID, moduleID uint) (dto.ModuleProgressResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}
	if _, err := s.module(ctx, moduleID); err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	row, err := s.load(ctx, student.ID, moduleID)
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	before := row.State()
	next, err := progress.Start(before, s.now().UTC())
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}
	if next.Status != before.Status {
		row.Apply(next)
		if err := s.progress.Save(ctx, &row); err != nil {
			return dto.ModuleProgressResponse{}, err
		}
	}

	return progressResponse(row), nil
}

func (s *progressService) Get(ctx context.Context, userID, moduleID uint) (dto.ModuleProgressResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}
	if _, err := s.module(ctx, moduleID); err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	row, err := s.load(ctx, student.ID, moduleID)
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}
	return progressResponse(row), nil
}

// RecordExamAttempt scores an attempt against the module's primary or retake
// exam, whichever the current state calls for.
func (s *progressService) RecordExamAttempt(ctx context.Context, moduleID uint, req dto.QuizAttemptRequest) (dto.ExamAttemptResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/progress")
	ctx, span := tracer.Start(ctx, "progress.record_exam")
	span.SetAttributes(
		attribute.Int64("progress.module_id", int64(moduleID)),
		attribute.Int64("progress.student_id", int64(req.StudentID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ExamAttemptResponse{}, validationFailure(err)
	}

	module, err := s.module(ctx, moduleID)
	if err != nil {
		return dto.ExamAttemptResponse{}, err
	}
	if _, err := s.students.GetByID(ctx, req.StudentID); err != nil {
		if repository.IsNotFound(err) {
			return dto.ExamAttemptResponse{}, ErrStudentNotFound
		}
		return dto.ExamAttemptResponse{}, err
	}

	row, err := s.load(ctx, req.StudentID, moduleID)
	if err != nil {
		return dto.ExamAttemptResponse{}, err
	}
	state := row.State()
	if err := progress.CanAttempt(state); err != nil {
		return dto.ExamAttemptResponse{}, err
	}

	kind := progress.NextAttemptKind(state)
	quizID := module.ExamQuizID
	if kind == progress.AttemptRetake {
		quizID = module.RetakeQuizID
	}
	if quizID == nil {
		return dto.ExamAttemptResponse{}, ErrModuleExamMissing
	}
	quiz, err := s.courses.GetQuiz(ctx, *quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.ExamAttemptResponse{}, ErrModuleExamMissing
		}
		return dto.ExamAttemptResponse{}, err
	}
	if quiz.MaxPoints <= 0 {
		return dto.ExamAttemptResponse{}, ErrModuleExamMissing
	}
	if req.PointsAwarded > quiz.MaxPoints {
		return dto.ExamAttemptResponse{}, fieldError("points_awarded", "must not exceed the exam maximum")
	}

	score := grading.Round2(req.PointsAwarded / quiz.MaxPoints * 100)
	now := s.now().UTC()
	next, outcome, err := progress.RecordExam(state, score, module.PassMark(), now)
	if err != nil {
		if errors.Is(err, progress.ErrInvalidScore) {
			return dto.ExamAttemptResponse{}, fieldError("points_awarded", err.Error())
		}
		return dto.ExamAttemptResponse{}, err
	}

	row.Apply(next)
	if err := s.progress.Save(ctx, &row); err != nil {
		span.RecordError(err)
		return dto.ExamAttemptResponse{}, err
	}

	attempt := models.QuizAttempt{
		QuizID:        quiz.ID,
		StudentID:     req.StudentID,
		PointsAwarded: req.PointsAwarded,
		MaxPoints:     quiz.MaxPoints,
		CompletedAt:   now,
	}
	if err := s.courses.CreateQuizAttempt(ctx, &attempt); err != nil {
		span.RecordError(err)
		return dto.ExamAttemptResponse{}, err
	}

	result := "failed"
	if outcome.Passed {
		result = "passed"
	}
	observability.ExamAttempts().WithLabelValues(string(outcome.Kind), result).Inc()
	span.SetAttributes(
		attribute.String("progress.attempt_kind", string(outcome.Kind)),
		attribute.Bool("progress.passed", outcome.Passed),
	)

	if s.recompute != nil {
		if _, err := s.recompute.RequestRecompute(ctx, req.StudentID, module.CourseID); err != nil {
			s.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("failed to dispatch course grade recompute")
		}
	}

	return dto.ExamAttemptResponse{
		Kind:     string(outcome.Kind),
		Score:    score,
		Passed:   outcome.Passed,
		Locked:   outcome.Locked,
		Progress: progressResponse(row),
	}, nil
}

func (s *progressService) Unlock(ctx context.Context, moduleID, studentID uint, actor ActivityActor) (dto.ModuleProgressResponse, error) {
	if _, err := s.module(ctx, moduleID); err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	row, err := s.load(ctx, studentID, moduleID)
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	next, err := progress.Unlock(row.State(), s.now().UTC())
	if err != nil {
		return dto.ModuleProgressResponse{}, err
	}
	row.Apply(next)
	row.RetakeUnlockedBy = &actor.ID

	if err := s.progress.Save(ctx, &row); err != nil {
		return dto.ModuleProgressResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionRetakeUnlocked,
		EntityType: "module",
		EntityID:   &moduleID,
		Metadata: map[string]interface{}{
			"student_id":         studentID,
			"exam_attempts_used": row.ExamAttemptsUsed,
		},
	})

	return progressResponse(row), nil
}

// load returns the stored row or a fresh not_started row.
func (s *progressService) load(ctx context.Context, studentID, moduleID uint) (models.ModuleProgress, error) {
	row, err := s.progress.Get(ctx, studentID, moduleID)
	if err == nil {
		return row, nil
	}
	if repository.IsNotFound(err) {
		return models.ModuleProgress{
			StudentID: studentID,
			ModuleID:  moduleID,
			Status:    string(progress.StatusNotStarted),
		}, nil
	}
	return models.ModuleProgress{}, err
}

func (s *progressService) module(ctx context.Context, id uint) (models.Module, error) {
	module, err := s.courses.GetModule(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, err
	}
	return module, nil
}

func (s *progressService) studentByUser(ctx context.Context, userID uint) (models.Student, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func progressResponse(row models.ModuleProgress) dto.ModuleProgressResponse {
	response := dto.NewModuleProgressResponse(row)
	if progress.CanAttempt(row.State()) == nil {
		response.NextAttempt = string(progress.NextAttemptKind(row.State()))
	}
	return response
}
