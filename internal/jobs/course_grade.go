package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

// CourseGradeRecomputer is the part of the course grade service the job drives.
type CourseGradeRecomputer interface {
	Recompute(ctx context.Context, studentID, courseID uint) (dto.CourseGradeResponse, error)
	ClearPending(ctx context.Context, studentID, courseID uint)
}

// CourseGradeJob recomputes one student's course total.
type CourseGradeJob struct {
	grades CourseGradeRecomputer
	logger zerolog.Logger
}

// NewCourseGradeJob constructs the recompute handler.
func NewCourseGradeJob(grades CourseGradeRecomputer, logger zerolog.Logger) *CourseGradeJob {
	return &CourseGradeJob{
		grades: grades,
		logger: logger.With().Str("component", "course_grade_job").Logger(),
	}
}

func (j *CourseGradeJob) Name() string { return service.JobCourseGradeRecompute }

func (j *CourseGradeJob) RetryPolicy() queue.RetryPolicy { return deliveryRetry() }

// Handle releases the coalescing key before reading so changes made while the
// job runs schedule another pass.
func (j *CourseGradeJob) Handle(ctx context.Context, env queue.Envelope) error {
	var payload service.CourseGradePayload
	if err := env.Decode(&payload); err != nil {
		return queue.Delete(err)
	}

	j.grades.ClearPending(ctx, payload.StudentID, payload.CourseID)

	result, err := j.grades.Recompute(ctx, payload.StudentID, payload.CourseID)
	if err != nil {
		return err
	}

	j.logger.Debug().
		Uint("student_id", payload.StudentID).
		Uint("course_id", payload.CourseID).
		Float64("percentage", result.Percentage).
		Msg("course grade recomputed")
	return nil
}
