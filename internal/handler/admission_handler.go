package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// AdmissionHandler exposes the public application form and its review queue.
type AdmissionHandler struct {
	service service.AdmissionService
	logger  zerolog.Logger
}

// NewAdmissionHandler constructs the handler.
func NewAdmissionHandler(service service.AdmissionService, logger zerolog.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "admission_handler").Logger(),
	}
}

// RegisterPublic binds the unauthenticated application endpoint.
func (h *AdmissionHandler) RegisterPublic(router fiber.Router) {
	router.Post("", h.apply)
}

// RegisterAdmin binds the review endpoints.
func (h *AdmissionHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
}

func (h *AdmissionHandler) apply(c *fiber.Ctx) error {
	var payload dto.ApplicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	application, err := h.service.Apply(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit application")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application submitted", application)
}

func (h *AdmissionHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	response, err := h.service.List(requestContext(c), dto.ApplicationListRequest{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list applications")
	}
	return utils.SendSuccess(c, "applications", response)
}

func (h *AdmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	application, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load application")
	}
	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *AdmissionHandler) approve(c *fiber.Ctx) error {
	return h.review(c, h.service.Approve, "application approved")
}

func (h *AdmissionHandler) reject(c *fiber.Ctx) error {
	return h.review(c, h.service.Reject, "application rejected")
}

type reviewFunc func(ctx context.Context, id uint, req dto.ApplicationReviewRequest, actor service.ActivityActor) (dto.ApplicationResponse, error)

func (h *AdmissionHandler) review(c *fiber.Ctx, action reviewFunc, message string) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ApplicationReviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	application, err := action(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to review application")
	}
	return utils.SendSuccess(c, message, application)
}
