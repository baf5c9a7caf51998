package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/pkg/cloudinary"
)

const defaultAttachmentLimit = 10 * 1024 * 1024

var allowedAttachmentTypes = map[string]struct{}{
	"application/pdf": {},
	"application/zip": {},
	"text/plain":      {},
}

// AttachmentStorage persists submission attachments and returns their URL.
type AttachmentStorage interface {
	UploadAttachment(ctx context.Context, key cloudinary.AttachmentKey, name string, reader io.Reader) (string, error)
}

// SubmissionService orchestrates student submission workflows.
type SubmissionService interface {
	Create(ctx context.Context, userID uint, req dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, userID, submissionID uint) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, userID uint, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	courses     repository.CourseRepository
	students    repository.StudentRepository
	storage     AttachmentStorage
	validator   *validator.Validate
	logger      zerolog.Logger
	maxSize     int64
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. Storage may be nil
// when attachments are disabled.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	courses repository.CourseRepository,
	students repository.StudentRepository,
	storage AttachmentStorage,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		courses:     courses,
		students:    students,
		storage:     storage,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		maxSize:     defaultAttachmentLimit,
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, userID uint, req dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, validationFailure(err)
	}

	student, err := s.studentFor(ctx, userID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.courses.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	used, err := s.submissions.CountAttempts(ctx, assignment.ID, student.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	attempt := int(used) + 1
	if !assignment.AllowsAttempt(attempt) {
		return dto.SubmissionResponse{}, ErrAttemptsExhausted
	}

	submission := models.Submission{
		AssignmentID:  assignment.ID,
		StudentID:     student.ID,
		AttemptNumber: attempt,
		Status:        models.SubmissionStatusDraft,
		Body:          strings.TrimSpace(req.Body),
	}

	if file != nil {
		url, err := s.storeAttachment(ctx, cloudinary.AttachmentKey{
			AssignmentID: assignment.ID,
			StudentID:    student.ID,
			Attempt:      attempt,
		}, file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		submission.FileURL = url
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Int("attempt", attempt).
		Msg("submission draft created")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Submit(ctx context.Context, userID, submissionID uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.submit")
	span.SetAttributes(attribute.Int64("submission.id", int64(submissionID)))
	defer span.End()

	student, err := s.studentFor(ctx, userID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if submission.StudentID != student.ID {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}
	if submission.Status != models.SubmissionStatusDraft {
		return dto.SubmissionResponse{}, ErrSubmissionAlreadySubmitted
	}

	submittedAt := s.now().UTC()
	lateness, err := grading.EvaluateLateness(submission.Assignment.DueAt, submittedAt, submission.Assignment.Policy())
	if err != nil {
		span.SetStatus(codes.Error, "lateness_rejected")
		return dto.SubmissionResponse{}, &ValidationError{
			Fields: map[string][]string{"submitted_at": {"is after the due date and the assignment does not accept late work"}},
			Cause:  err,
		}
	}

	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = &submittedAt
	submission.IsLate = lateness.IsLate
	submission.LateDays = lateness.LateDays
	submission.LatePenalty = lateness.Penalty

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.Bool("submission.late", lateness.IsLate),
		attribute.Int("submission.late_days", lateness.LateDays),
	)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Bool("late", lateness.IsLate).
		Float64("late_penalty", lateness.Penalty).
		Msg("submission submitted")

	return dto.NewSubmissionResponse(submission), nil
}

// ListMine lists the caller's submissions. Only published grades are attached.
func (s *submissionService) ListMine(ctx context.Context, userID uint, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, validationFailure(err)
	}

	student, err := s.studentFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    &student.ID,
	}
	if filter.Status != "" {
		status := filter.Status
		repoFilter.Status = &status
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response := dto.NewSubmissionResponse(submission)
		if submission.IsGraded() {
			if grade, ok := latestPublished(submission.Grades); ok {
				g := dto.NewGradeResponse(grade)
				response.Grade = &g
			}
		}
		out = append(out, response)
	}
	return out, nil
}

func latestPublished(grades []models.Grade) (models.Grade, bool) {
	var (
		found  models.Grade
		exists bool
	)
	for _, grade := range grades {
		if grade.IsPublished && (!exists || grade.Version > found.Version) {
			found = grade
			exists = true
		}
	}
	return found, exists
}

func (s *submissionService) studentFor(ctx context.Context, userID uint) (models.Student, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (s *submissionService) storeAttachment(ctx context.Context, key cloudinary.AttachmentKey, file *multipart.FileHeader) (string, error) {
	if s.storage == nil {
		return "", errors.New("attachment storage is not configured")
	}
	if file.Size > s.maxSize {
		return "", ErrAttachmentTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return "", ErrAttachmentTooLarge
	}

	detected := attachmentType(mimetype.Detect(buf.Bytes()).String())
	if _, ok := allowedAttachmentTypes[detected]; !ok {
		s.logger.Warn().Str("mime", detected).Msg("attachment rejected")
		return "", ErrUnsupportedAttachment
	}

	return s.storage.UploadAttachment(ctx, key, filepath.Base(file.Filename), bytes.NewReader(buf.Bytes()))
}

func attachmentType(value string) string {
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}
