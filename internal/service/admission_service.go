package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// AdmissionService handles admission applications up to account creation.
type AdmissionService interface {
	Apply(ctx context.Context, req dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	List(ctx context.Context, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error)
	Get(ctx context.Context, id uint) (dto.ApplicationResponse, error)
	Approve(ctx context.Context, id uint, req dto.ApplicationReviewRequest, actor ActivityActor) (dto.ApplicationResponse, error)
	Reject(ctx context.Context, id uint, req dto.ApplicationReviewRequest, actor ActivityActor) (dto.ApplicationResponse, error)
}

type admissionService struct {
	repo      repository.ApplicationRepository
	queue     queue.Queue
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAdmissionService constructs the admission service.
func NewAdmissionService(
	repo repository.ApplicationRepository,
	q queue.Queue,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) AdmissionService {
	return &admissionService{
		repo:      repo,
		queue:     q,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "admission_service").Logger(),
	}
}

func (s *admissionService) Apply(ctx context.Context, req dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, validationFailure(err)
	}

	application := models.StudentApplication{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		ProgramID: req.ProgramID,
		Status:    models.ApplicationStatusSubmitted,
	}
	if err := s.repo.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	s.logger.Info().Uint("application_id", application.ID).Msg("admission application received")
	return dto.NewApplicationResponse(application), nil
}

func (s *admissionService) List(ctx context.Context, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error) {
	filter := repository.ApplicationFilter{
		Status:   strings.TrimSpace(req.Status),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ApplicationListResponse{}, err
	}

	responses := make([]dto.ApplicationResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewApplicationResponse(item))
	}

	return dto.ApplicationListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *admissionService) Get(ctx context.Context, id uint) (dto.ApplicationResponse, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return dto.NewApplicationResponse(application), nil
}

// Approve accepts the application and queues account creation. Failed
// applications may be approved again.
func (s *admissionService) Approve(ctx context.Context, id uint, req dto.ApplicationReviewRequest, actor ActivityActor) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, validationFailure(err)
	}

	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	switch application.Status {
	case models.ApplicationStatusSubmitted, models.ApplicationStatusFailed:
	default:
		return dto.ApplicationResponse{}, ErrApplicationNotReviewable
	}

	note := strings.TrimSpace(req.Note)
	if err := s.repo.UpdateStatus(ctx, id, models.ApplicationStatusApproved, note); err != nil {
		return dto.ApplicationResponse{}, err
	}
	application.Status = models.ApplicationStatusApproved
	if note != "" {
		application.ReviewNote = note
	}

	if _, err := queue.Dispatch(ctx, s.queue, JobAccountCreate, AccountPayload{ApplicationID: id}); err != nil {
		s.logger.Error().Err(err).Uint("application_id", id).Msg("failed to dispatch account creation")
		return dto.ApplicationResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionApplicationApproved,
		EntityType: "application",
		EntityID:   &application.ID,
		Metadata:   map[string]interface{}{"email": application.Email},
	})

	return dto.NewApplicationResponse(application), nil
}

func (s *admissionService) Reject(ctx context.Context, id uint, req dto.ApplicationReviewRequest, actor ActivityActor) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ApplicationResponse{}, validationFailure(err)
	}

	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	switch application.Status {
	case models.ApplicationStatusSubmitted, models.ApplicationStatusPendingReview, models.ApplicationStatusFailed:
	default:
		return dto.ApplicationResponse{}, ErrApplicationNotReviewable
	}

	note := strings.TrimSpace(req.Note)
	if err := s.repo.UpdateStatus(ctx, id, models.ApplicationStatusRejected, note); err != nil {
		return dto.ApplicationResponse{}, err
	}
	application.Status = models.ApplicationStatusRejected
	if note != "" {
		application.ReviewNote = note
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionApplicationRejected,
		EntityType: "application",
		EntityID:   &application.ID,
	})

	return dto.NewApplicationResponse(application), nil
}

func (s *admissionService) load(ctx context.Context, id uint) (models.StudentApplication, error) {
	application, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.StudentApplication{}, ErrApplicationNotFound
		}
		return models.StudentApplication{}, err
	}
	return application, nil
}
