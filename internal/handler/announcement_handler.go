package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// AnnouncementHandler exposes announcement authoring for staff.
type AnnouncementHandler struct {
	service service.AnnouncementService
	logger  zerolog.Logger
}

// NewAnnouncementHandler constructs an announcement handler.
func NewAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "announcement_handler").Logger(),
	}
}

// Register binds announcement routes.
func (h *AnnouncementHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/dispatch", h.redispatch)
}

func (h *AnnouncementHandler) create(c *fiber.Ctx) error {
	var payload dto.AnnouncementCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	announcement, err := h.service.Create(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "announcement queued", announcement)
}

func (h *AnnouncementHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	response, err := h.service.List(requestContext(c), dto.AnnouncementListRequest{
		Audience: c.Query("audience"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list announcements")
	}
	return utils.SendSuccess(c, "announcements", response)
}

func (h *AnnouncementHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	announcement, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load announcement")
	}
	return utils.SendSuccess(c, "announcement retrieved", announcement)
}

func (h *AnnouncementHandler) redispatch(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	announcement, err := h.service.Redispatch(requestContext(c), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to re-queue announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "announcement re-queued", announcement)
}
