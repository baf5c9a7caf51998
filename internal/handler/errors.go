package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/progress"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrSubmissionNotFound, fiber.StatusNotFound},
	{service.ErrAssignmentNotFound, fiber.StatusNotFound},
	{service.ErrStudentNotFound, fiber.StatusNotFound},
	{service.ErrCourseNotFound, fiber.StatusNotFound},
	{service.ErrModuleNotFound, fiber.StatusNotFound},
	{service.ErrQuizNotFound, fiber.StatusNotFound},
	{service.ErrAnnouncementNotFound, fiber.StatusNotFound},
	{service.ErrApplicationNotFound, fiber.StatusNotFound},
	{service.ErrNotificationNotFound, fiber.StatusNotFound},
	{service.ErrSubmissionForbidden, fiber.StatusForbidden},
	{service.ErrUnsupportedAttachment, fiber.StatusUnsupportedMediaType},
	{service.ErrAttachmentTooLarge, fiber.StatusRequestEntityTooLarge},
	{service.ErrSubmissionNotGradable, fiber.StatusConflict},
	{service.ErrSubmissionAlreadySubmitted, fiber.StatusConflict},
	{service.ErrAttemptsExhausted, fiber.StatusConflict},
	{service.ErrModuleExamMissing, fiber.StatusConflict},
	{service.ErrApplicationNotReviewable, fiber.StatusConflict},
	{service.ErrAnnouncementDispatched, fiber.StatusConflict},
	{service.ErrAnnouncementNotQueued, fiber.StatusServiceUnavailable},
	{grading.ErrLateSubmissionRejected, fiber.StatusUnprocessableEntity},
	{progress.ErrExamLocked, fiber.StatusConflict},
	{progress.ErrAlreadyCompleted, fiber.StatusConflict},
	{progress.ErrInvalidTransition, fiber.StatusConflict},
}

// respondError maps service errors onto the response envelope. Unknown errors
// are logged and reported as 500 with the fallback message.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return utils.SendValidationError(c, validationErr.Fields)
	}
	if fields := utils.ValidationFields(err); fields != nil {
		return utils.SendValidationError(c, fields)
	}

	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.err) {
			return utils.SendError(c, candidate.status, candidate.err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
