package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// SubmissionHandler manages the student submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/:id/submit", h.submit)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}

	filter := dto.SubmissionFilter{
		AssignmentID: assignmentID,
		Status:       c.Query("status"),
	}

	submissions, err := h.service.ListMine(requestContext(c), userIDFromContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	submission, err := h.service.Create(requestContext(c), userIDFromContext(c), payload, file)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create submission")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Submit(requestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit")
	}

	message := "submission received"
	if submission.IsLate {
		message = "submission received late"
	}
	return utils.SendSuccess(c, message, submission)
}
