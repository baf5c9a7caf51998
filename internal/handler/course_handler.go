package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// CourseHandler exposes course structure and course grades.
type CourseHandler struct {
	courses service.CourseService
	grades  service.CourseGradeService
	logger  zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses service.CourseService, grades service.CourseGradeService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courses: courses,
		grades:  grades,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register binds the student facing course routes.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/grade", h.myGrade)
}

// RegisterAdmin binds course authoring and grade inspection routes.
func (h *CourseHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/modules", h.addModule)
	router.Post("/:id/assignments", h.addAssignment)
	router.Post("/:id/quizzes", h.addQuiz)
	router.Get("/:id/grades/:student_id", h.studentGrade)
	router.Post("/:id/grades/:student_id/recompute", h.recompute)
}

func (h *CourseHandler) create(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	course, err := h.courses.Create(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create course")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	course, err := h.courses.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load course")
	}
	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CourseHandler) addModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ModuleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	module, err := h.courses.AddModule(requestContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create module")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *CourseHandler) addAssignment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.courses.AddAssignment(requestContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create assignment")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *CourseHandler) addQuiz(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	quiz, err := h.courses.AddQuiz(requestContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create quiz")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz created", quiz)
}

func (h *CourseHandler) myGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	grade, err := h.grades.GetForUser(requestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load course grade")
	}
	return utils.SendSuccess(c, "course grade", grade)
}

func (h *CourseHandler) studentGrade(c *fiber.Ctx) error {
	courseID, studentID, err := courseStudentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.grades.Get(requestContext(c), studentID, courseID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load course grade")
	}
	return utils.SendSuccess(c, "course grade", grade)
}

func (h *CourseHandler) recompute(c *fiber.Ctx) error {
	courseID, studentID, err := courseStudentParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	queued, err := h.grades.RequestRecompute(requestContext(c), studentID, courseID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to queue recompute")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "recompute requested", dto.RecomputeResponse{Queued: queued})
}

func courseStudentParams(c *fiber.Ctx) (uint, uint, error) {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	studentID, err := parseUintParam(c, "student_id")
	if err != nil {
		return 0, 0, err
	}
	return courseID, studentID, nil
}
