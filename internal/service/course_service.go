package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/grading"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// CourseService manages course authoring.
type CourseService interface {
	Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	AddModule(ctx context.Context, courseID uint, req dto.ModuleCreateRequest) (dto.ModuleResponse, error)
	AddAssignment(ctx context.Context, courseID uint, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	AddQuiz(ctx context.Context, courseID uint, req dto.QuizCreateRequest) (dto.QuizResponse, error)
}

type courseService struct {
	courses   repository.CourseRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseService constructs the course authoring service.
func NewCourseService(courses repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courses,
		validator: validate,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, validationFailure(err)
	}

	course := models.Course{
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:     strings.TrimSpace(req.Title),
		ProgramID: req.ProgramID,
	}
	if err := s.courses.CreateCourse(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Str("code", course.Code).Msg("course created")
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.course(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) AddModule(ctx context.Context, courseID uint, req dto.ModuleCreateRequest) (dto.ModuleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ModuleResponse{}, validationFailure(err)
	}
	if _, err := s.course(ctx, courseID); err != nil {
		return dto.ModuleResponse{}, err
	}

	if err := s.checkExamQuiz(ctx, courseID, req.ExamQuizID, "exam_quiz_id", models.QuizKindExam); err != nil {
		return dto.ModuleResponse{}, err
	}
	if err := s.checkExamQuiz(ctx, courseID, req.RetakeQuizID, "retake_quiz_id", models.QuizKindRetake); err != nil {
		return dto.ModuleResponse{}, err
	}

	module := models.Module{
		CourseID:       courseID,
		Title:          strings.TrimSpace(req.Title),
		Position:       req.Position,
		ExamQuizID:     req.ExamQuizID,
		RetakeQuizID:   req.RetakeQuizID,
		PassPercentage: models.DefaultPassPercentage,
	}
	if req.PassPercentage != nil {
		module.PassPercentage = *req.PassPercentage
	}

	if err := s.courses.CreateModule(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}
	return dto.NewModuleResponse(module), nil
}

func (s *courseService) AddAssignment(ctx context.Context, courseID uint, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, validationFailure(err)
	}
	if _, err := s.course(ctx, courseID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	policy := req.LatePolicy
	if policy == "" {
		policy = string(grading.LatePolicyAllow)
	}
	if policy == string(grading.LatePolicyPenalty) && req.LatePenaltyPerDay <= 0 {
		return dto.AssignmentResponse{}, fieldError("late_penalty_per_day", "must be greater than 0 for the penalty policy")
	}

	assignment := models.Assignment{
		CourseID:          courseID,
		ModuleID:          req.ModuleID,
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		MaxPoints:         req.MaxPoints,
		DueAt:             req.DueAt.UTC(),
		LatePolicy:        policy,
		LatePenaltyPerDay: req.LatePenaltyPerDay,
		MaxAttempts:       req.MaxAttempts,
	}
	if err := s.courses.CreateAssignment(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *courseService) AddQuiz(ctx context.Context, courseID uint, req dto.QuizCreateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, validationFailure(err)
	}
	if _, err := s.course(ctx, courseID); err != nil {
		return dto.QuizResponse{}, err
	}

	kind := req.Kind
	if kind == "" {
		kind = models.QuizKindQuiz
	}

	quiz := models.Quiz{
		CourseID:  courseID,
		ModuleID:  req.ModuleID,
		Title:     strings.TrimSpace(req.Title),
		Kind:      kind,
		MaxPoints: req.MaxPoints,
	}
	if err := s.courses.CreateQuiz(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}
	return dto.NewQuizResponse(quiz), nil
}

func (s *courseService) course(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	return course, nil
}

func (s *courseService) checkExamQuiz(ctx context.Context, courseID uint, quizID *uint, field, kind string) error {
	if quizID == nil {
		return nil
	}
	quiz, err := s.courses.GetQuiz(ctx, *quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return fieldError(field, "quiz does not exist")
		}
		return err
	}
	if quiz.CourseID != courseID {
		return fieldError(field, "quiz belongs to another course")
	}
	if quiz.Kind != kind {
		return fieldError(field, "quiz must be of kind "+kind)
	}
	return nil
}
