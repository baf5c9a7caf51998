package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// ProgressHandler exposes module progress and exam attempts.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register binds the student module routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Post("/:id/start", h.start)
	router.Get("/:id/progress", h.get)
}

// RegisterAdmin binds exam recording and retake unlocking.
func (h *ProgressHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/:id/exam-attempts", h.recordAttempt)
	router.Post("/:id/progress/:student_id/unlock", h.unlock)
}

func (h *ProgressHandler) start(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	progress, err := h.service.Start(requestContext(c), userIDFromContext(c), moduleID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to start module")
	}
	return utils.SendSuccess(c, "module started", progress)
}

func (h *ProgressHandler) get(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	progress, err := h.service.Get(requestContext(c), userIDFromContext(c), moduleID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load module progress")
	}
	return utils.SendSuccess(c, "module progress", progress)
}

func (h *ProgressHandler) recordAttempt(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.QuizAttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.RecordExamAttempt(requestContext(c), moduleID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record exam attempt")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam attempt recorded", result)
}

func (h *ProgressHandler) unlock(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	studentID, err := parseUintParam(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}

	progress, err := h.service.Unlock(requestContext(c), moduleID, studentID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to unlock retake")
	}
	return utils.SendSuccess(c, "retake unlocked", progress)
}
