package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// GradingService encapsulates grading workflows for instructors and administrators.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, req dto.GradeRequest, actor ActivityActor) (dto.GradeOutcome, error)
	Preview(ctx context.Context, submissionID uint, override *float64) (dto.GradeCeilingResponse, error)
	History(ctx context.Context, submissionID uint) ([]dto.GradeResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	notifier    Notifier
	recompute   RecomputeRequester
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	notifier Notifier,
	recompute RecomputeRequester,
	activity ActivityRecorder,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		submissions: submissions,
		validator:   validate,
		notifier:    notifier,
		recompute:   recompute,
		activity:    activity,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, req dto.GradeRequest, actor ActivityActor) (dto.GradeOutcome, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.String("grading.action", req.Action),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeOutcome{}, validationFailure(err)
	}

	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeOutcome{}, err
	}
	if !submission.Gradable() {
		span.SetStatus(codes.Error, "submission_not_gradable")
		return dto.GradeOutcome{}, ErrSubmissionNotGradable
	}

	result, err := grading.Compute(grading.GradeInput{
		PointsAwarded:   *req.PointsAwarded,
		MaxPoints:       submission.Assignment.MaxPoints,
		AutoPenalty:     submission.LatePenalty,
		PenaltyOverride: req.LatePenaltyOverride,
		Action:          grading.Action(req.Action),
	})
	if err != nil {
		span.SetStatus(codes.Error, "grade_rejected")
		return dto.GradeOutcome{}, gradeFieldError(err)
	}

	candidate := models.Grade{
		SubmissionID:          submission.ID,
		PointsAwarded:         result.PointsAwarded,
		MaxPoints:             result.MaxPoints,
		LatePenalty:           result.Penalty,
		LatePenaltyOverride:   req.LatePenaltyOverride,
		MaxPointsAfterPenalty: result.MaxPointsAfterPenalty,
		Feedback:              strings.TrimSpace(req.Feedback),
		IsPublished:           result.Published,
		GradedBy:              actor.ID,
		GradedAt:              s.now().UTC(),
	}

	latest, err := s.submissions.LatestGrade(ctx, submission.ID)
	switch {
	case err == nil && latest.SameDecision(candidate):
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.GradeOutcome{
			Submission: dto.NewSubmissionResponse(submission),
			Grade:      dto.NewGradeResponse(latest),
			Unchanged:  true,
		}, nil
	case err != nil && !repository.IsNotFound(err):
		span.RecordError(err)
		return dto.GradeOutcome{}, err
	}

	if err := s.submissions.AppendGrade(ctx, &candidate); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_persist_failed")
		return dto.GradeOutcome{}, err
	}
	observability.GradesRecorded().WithLabelValues(req.Action).Inc()

	action := models.ActionGradeDrafted
	if result.Published {
		action = models.ActionGradePublished
		if submission.Status != models.SubmissionStatusGraded {
			if err := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusGraded); err != nil {
				span.RecordError(err)
				return dto.GradeOutcome{}, err
			}
			submission.Status = models.SubmissionStatusGraded
		}
		s.afterPublish(ctx, submission, candidate)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "submission",
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"assignment_id":  submission.AssignmentID,
			"student_id":     submission.StudentID,
			"version":        candidate.Version,
			"points_awarded": candidate.PointsAwarded,
			"late_penalty":   candidate.LatePenalty,
		},
	})

	span.SetAttributes(attribute.Int("grading.version", candidate.Version))
	return dto.GradeOutcome{
		Submission: dto.NewSubmissionResponse(submission),
		Grade:      dto.NewGradeResponse(candidate),
	}, nil
}

// afterPublish notifies the student and schedules the course total. Failures
// are logged; the grade itself is already stored.
func (s *gradingService) afterPublish(ctx context.Context, submission models.Submission, grade models.Grade) {
	logger := s.logger.With().Uint("submission_id", submission.ID).Logger()

	if s.notifier != nil && submission.Student.UserID != 0 {
		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:    submission.Student.UserID,
			Type:      "grade.published",
			Title:     "Grade published",
			Message:   fmt.Sprintf("%s: %.2f / %.2f", submission.Assignment.Title, grade.PointsAwarded, grade.MaxPoints),
			SourceKey: fmt.Sprintf("grade:%d", grade.ID),
		})
		if err != nil && !errors.Is(err, ErrDuplicateNotification) {
			logger.Warn().Err(err).Msg("failed to notify student about grade")
		}
	}

	if s.recompute != nil {
		if _, err := s.recompute.RequestRecompute(ctx, submission.StudentID, submission.Assignment.CourseID); err != nil {
			logger.Warn().Err(err).Msg("failed to dispatch course grade recompute")
		}
	}
}

func (s *gradingService) Preview(ctx context.Context, submissionID uint, override *float64) (dto.GradeCeilingResponse, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeCeilingResponse{}, err
	}

	penalty, err := grading.EffectivePenalty(submission.LatePenalty, override)
	if err != nil {
		return dto.GradeCeilingResponse{}, gradeFieldError(err)
	}

	return dto.GradeCeilingResponse{
		SubmissionID:          submission.ID,
		MaxPoints:             submission.Assignment.MaxPoints,
		LatePenalty:           penalty,
		PenaltyOverridden:     override != nil,
		MaxPointsAfterPenalty: grading.CeilingAfterPenalty(submission.Assignment.MaxPoints, penalty),
	}, nil
}

func (s *gradingService) History(ctx context.Context, submissionID uint) ([]dto.GradeResponse, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}

	grades, err := s.submissions.GradeHistory(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.GradeResponse, 0, len(grades))
	for _, grade := range grades {
		out = append(out, dto.NewGradeResponse(grade))
	}
	return out, nil
}

func (s *gradingService) loadSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func gradeFieldError(err error) error {
	switch {
	case errors.Is(err, grading.ErrPenaltyOutOfRange):
		return fieldError("late_penalty_override", err.Error())
	case errors.Is(err, grading.ErrNegativePoints), errors.Is(err, grading.ErrPointsExceedCeiling):
		return fieldError("points_awarded", err.Error())
	case errors.Is(err, grading.ErrInvalidAction):
		return fieldError("action", err.Error())
	case errors.Is(err, grading.ErrInvalidMaxPoints):
		return fieldError("max_points", err.Error())
	default:
		return err
	}
}
