package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// AnnouncementService creates announcements and hands them to the fan-out job.
type AnnouncementService interface {
	Create(ctx context.Context, req dto.AnnouncementCreateRequest, actor ActivityActor) (dto.AnnouncementResponse, error)
	List(ctx context.Context, req dto.AnnouncementListRequest) (dto.AnnouncementListResponse, error)
	Get(ctx context.Context, id uint) (dto.AnnouncementResponse, error)
	Redispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	queue     queue.Queue
	validator *validator.Validate
	activity  ActivityRecorder
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(
	repo repository.AnnouncementRepository,
	q queue.Queue,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) AnnouncementService {
	return &announcementService{
		repo:      repo,
		queue:     q,
		validator: validate,
		activity:  activity,
		policy:    bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "announcement_service").Logger(),
	}
}

func (s *announcementService) Create(ctx context.Context, req dto.AnnouncementCreateRequest, actor ActivityActor) (dto.AnnouncementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AnnouncementResponse{}, validationFailure(err)
	}
	if req.Audience == models.AudienceProgram && req.ProgramID == nil {
		return dto.AnnouncementResponse{}, fieldError("program_id", "is required for the program audience")
	}

	programID := req.ProgramID
	if req.Audience != models.AudienceProgram {
		programID = nil
	}

	body := strings.TrimSpace(s.policy.Sanitize(req.Body))
	if body == "" {
		return dto.AnnouncementResponse{}, fieldError("body", "must contain text after sanitising")
	}

	announcement := models.Announcement{
		Slug:      slugFor(req.Title),
		Title:     strings.TrimSpace(req.Title),
		Body:      body,
		Audience:  req.Audience,
		ProgramID: programID,
		SendEmail: req.SendEmail,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, &announcement); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAnnouncementCreated,
		EntityType: "announcement",
		EntityID:   &announcement.ID,
		Metadata: map[string]interface{}{
			"audience":   announcement.Audience,
			"send_email": announcement.SendEmail,
		},
	})

	if err := s.queueFanout(ctx, announcement.ID); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.logger.Info().
		Uint("announcement_id", announcement.ID).
		Str("audience", announcement.Audience).
		Msg("announcement queued for delivery")

	return dto.NewAnnouncementResponse(announcement), nil
}

func (s *announcementService) List(ctx context.Context, req dto.AnnouncementListRequest) (dto.AnnouncementListResponse, error) {
	filter := repository.AnnouncementFilter{
		Audience: strings.TrimSpace(req.Audience),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AnnouncementListResponse{}, err
	}

	responses := make([]dto.AnnouncementResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewAnnouncementResponse(item))
	}

	return dto.AnnouncementListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *announcementService) Get(ctx context.Context, id uint) (dto.AnnouncementResponse, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}
	return dto.NewAnnouncementResponse(announcement), nil
}

// Redispatch queues the fan-out again for an announcement that has not finished
// dispatching. Chunks queued by an earlier run are skipped by the job.
func (s *announcementService) Redispatch(ctx context.Context, id uint, actor ActivityActor) (dto.AnnouncementResponse, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}
	if announcement.DispatchedAt != nil {
		return dto.AnnouncementResponse{}, ErrAnnouncementDispatched
	}

	if err := s.queueFanout(ctx, announcement.ID); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.logger.Info().
		Uint("announcement_id", announcement.ID).
		Uint("actor_id", actor.ID).
		Msg("announcement fan-out re-queued")
	return dto.NewAnnouncementResponse(announcement), nil
}

func (s *announcementService) queueFanout(ctx context.Context, id uint) error {
	if _, err := queue.Dispatch(ctx, s.queue, JobAnnouncementFanout, FanoutPayload{AnnouncementID: id}); err != nil {
		s.logger.Error().Err(err).Uint("announcement_id", id).Msg("failed to dispatch announcement fan-out")
		return fmt.Errorf("%w: %v", ErrAnnouncementNotQueued, err)
	}
	return nil
}
