package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseCreateRequest is the payload to create a course.
type CourseCreateRequest struct {
	Code      string `json:"code" validate:"required,min=2,max=32"`
	Title     string `json:"title" validate:"required,min=3,max=255"`
	ProgramID *uint  `json:"program_id" validate:"omitempty,gt=0"`
}

// ModuleCreateRequest is the payload to add a module to a course.
type ModuleCreateRequest struct {
	Title          string   `json:"title" validate:"required,min=3,max=255"`
	Position       int      `json:"position" validate:"gte=0"`
	ExamQuizID     *uint    `json:"exam_quiz_id" validate:"omitempty,gt=0"`
	RetakeQuizID   *uint    `json:"retake_quiz_id" validate:"omitempty,gt=0"`
	PassPercentage *float64 `json:"pass_percentage" validate:"omitempty,gt=0,lte=100"`
}

// AssignmentCreateRequest is the payload to add an assignment to a course.
type AssignmentCreateRequest struct {
	ModuleID          *uint     `json:"module_id" validate:"omitempty,gt=0"`
	Title             string    `json:"title" validate:"required,min=3,max=255"`
	Description       string    `json:"description" validate:"max=10000"`
	MaxPoints         float64   `json:"max_points" validate:"required,gt=0"`
	DueAt             time.Time `json:"due_at" validate:"required"`
	LatePolicy        string    `json:"late_policy" validate:"omitempty,oneof=allow penalty reject"`
	LatePenaltyPerDay float64   `json:"late_penalty_per_day" validate:"gte=0,lte=100"`
	MaxAttempts       int       `json:"max_attempts" validate:"gte=0,lte=20"`
}

// QuizCreateRequest is the payload to add a quiz or exam to a course.
type QuizCreateRequest struct {
	ModuleID  *uint   `json:"module_id" validate:"omitempty,gt=0"`
	Title     string  `json:"title" validate:"required,min=3,max=255"`
	Kind      string  `json:"kind" validate:"omitempty,oneof=quiz exam retake"`
	MaxPoints float64 `json:"max_points" validate:"required,gt=0"`
}

// QuizAttemptRequest records a scored quiz attempt for a student.
type QuizAttemptRequest struct {
	StudentID     uint    `json:"student_id" validate:"required,gt=0"`
	PointsAwarded float64 `json:"points_awarded" validate:"gte=0"`
}

// ModuleResponse describes a module.
type ModuleResponse struct {
	ID             uint    `json:"id"`
	CourseID       uint    `json:"course_id"`
	Title          string  `json:"title"`
	Position       int     `json:"position"`
	ExamQuizID     *uint   `json:"exam_quiz_id"`
	RetakeQuizID   *uint   `json:"retake_quiz_id"`
	PassPercentage float64 `json:"pass_percentage"`
}

// AssignmentResponse describes an assignment.
type AssignmentResponse struct {
	ID                uint      `json:"id"`
	CourseID          uint      `json:"course_id"`
	ModuleID          *uint     `json:"module_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	MaxPoints         float64   `json:"max_points"`
	DueAt             time.Time `json:"due_at"`
	LatePolicy        string    `json:"late_policy"`
	LatePenaltyPerDay float64   `json:"late_penalty_per_day"`
	MaxAttempts       int       `json:"max_attempts"`
}

// QuizResponse describes a quiz.
type QuizResponse struct {
	ID        uint    `json:"id"`
	CourseID  uint    `json:"course_id"`
	ModuleID  *uint   `json:"module_id"`
	Title     string  `json:"title"`
	Kind      string  `json:"kind"`
	MaxPoints float64 `json:"max_points"`
}

// CourseResponse describes a course with its contents.
type CourseResponse struct {
	ID          uint                 `json:"id"`
	Code        string               `json:"code"`
	Title       string               `json:"title"`
	ProgramID   *uint                `json:"program_id"`
	Modules     []ModuleResponse     `json:"modules"`
	Assignments []AssignmentResponse `json:"assignments"`
	Quizzes     []QuizResponse       `json:"quizzes"`
}

// NewModuleResponse converts a module model.
func NewModuleResponse(m models.Module) ModuleResponse {
	return ModuleResponse{
		ID:             m.ID,
		CourseID:       m.CourseID,
		Title:          m.Title,
		Position:       m.Position,
		ExamQuizID:     m.ExamQuizID,
		RetakeQuizID:   m.RetakeQuizID,
		PassPercentage: m.PassMark(),
	}
}

// NewAssignmentResponse converts an assignment model.
func NewAssignmentResponse(a models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                a.ID,
		CourseID:          a.CourseID,
		ModuleID:          a.ModuleID,
		Title:             a.Title,
		Description:       a.Description,
		MaxPoints:         a.MaxPoints,
		DueAt:             a.DueAt,
		LatePolicy:        a.LatePolicy,
		LatePenaltyPerDay: a.LatePenaltyPerDay,
		MaxAttempts:       a.MaxAttempts,
	}
}

// NewQuizResponse converts a quiz model.
func NewQuizResponse(q models.Quiz) QuizResponse {
	return QuizResponse{
		ID:        q.ID,
		CourseID:  q.CourseID,
		ModuleID:  q.ModuleID,
		Title:     q.Title,
		Kind:      q.Kind,
		MaxPoints: q.MaxPoints,
	}
}

// NewCourseResponse converts a course model including preloaded children.
func NewCourseResponse(c models.Course) CourseResponse {
	resp := CourseResponse{
		ID:          c.ID,
		Code:        c.Code,
		Title:       c.Title,
		ProgramID:   c.ProgramID,
		Modules:     make([]ModuleResponse, 0, len(c.Modules)),
		Assignments: make([]AssignmentResponse, 0, len(c.Assignments)),
		Quizzes:     make([]QuizResponse, 0, len(c.Quizzes)),
	}
	for _, m := range c.Modules {
		resp.Modules = append(resp.Modules, NewModuleResponse(m))
	}
	for _, a := range c.Assignments {
		resp.Assignments = append(resp.Assignments, NewAssignmentResponse(a))
	}
	for _, q := range c.Quizzes {
		resp.Quizzes = append(resp.Quizzes, NewQuizResponse(q))
	}
	return resp
}
