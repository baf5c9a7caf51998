package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// GradingHandler wires grading endpoints for admins and instructors.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the submissions group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:id/grades", h.grade)
	router.Get("/:id/grades", h.history)
	router.Get("/:id/ceiling", h.ceiling)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	outcome, err := h.service.Grade(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to grade submission")
	}

	switch {
	case outcome.Unchanged:
		return utils.SendSuccess(c, "grade unchanged", outcome)
	case outcome.Grade.IsPublished:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade published", outcome)
	default:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade drafted", outcome)
	}
}

func (h *GradingHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	grades, err := h.service.History(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load grades")
	}

	return utils.SendSuccess(c, "grade history", grades)
}

func (h *GradingHandler) ceiling(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	override, err := parseQueryFloat(c, "late_penalty_override")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid late_penalty_override")
	}

	preview, err := h.service.Preview(requestContext(c), id, override)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute grade ceiling")
	}

	return utils.SendSuccess(c, "grade ceiling", preview)
}
