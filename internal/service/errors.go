package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/noah-isme/gema-lms-api/internal/utils"
)

var (
	// ErrSubmissionNotFound indicates the submission was not located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionNotGradable indicates a draft submission was sent for grading.
	ErrSubmissionNotGradable = errors.New("submission has not been submitted")
	// ErrSubmissionAlreadySubmitted indicates a second submit of the same attempt.
	ErrSubmissionAlreadySubmitted = errors.New("submission already submitted")
	// ErrSubmissionForbidden indicates the submission belongs to another student.
	ErrSubmissionForbidden = errors.New("submission belongs to another student")
	// ErrAssignmentNotFound indicates the assignment was not located.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAttemptsExhausted indicates the assignment allows no further attempts.
	ErrAttemptsExhausted = errors.New("no submission attempts remaining")
	// ErrUnsupportedAttachment indicates the uploaded file type is not accepted.
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
	// ErrAttachmentTooLarge indicates the uploaded file exceeds the size limit.
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrStudentNotFound indicates the user has no student profile.
	ErrStudentNotFound = errors.New("student not found")
	// ErrCourseNotFound indicates the course was not located.
	ErrCourseNotFound = errors.New("course not found")
	// ErrModuleNotFound indicates the module was not located.
	ErrModuleNotFound = errors.New("module not found")
	// ErrQuizNotFound indicates the quiz was not located.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrModuleExamMissing indicates the module has no exam quiz configured for the attempt.
	ErrModuleExamMissing = errors.New("module exam not configured")
	// ErrAnnouncementNotFound indicates the announcement was not located.
	ErrAnnouncementNotFound = errors.New("announcement not found")
	// ErrAnnouncementDispatched indicates the fan-out already completed.
	ErrAnnouncementDispatched = errors.New("announcement already dispatched")
	// ErrAnnouncementNotQueued indicates the announcement was stored but its fan-out could not be queued.
	ErrAnnouncementNotQueued = errors.New("announcement saved but delivery could not be queued")
	// ErrApplicationNotFound indicates the admission application was not located.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationNotReviewable indicates the application already left the review queue.
	ErrApplicationNotReviewable = errors.New("application cannot be reviewed in its current status")
	// ErrDuplicateEmail indicates an account with the applicant's email already exists.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrNotificationNotFound indicates the notification does not exist for the user.
	ErrNotificationNotFound = errors.New("notification not found")
)

// ValidationError carries field level problems with a request. Cause, when
// set, is the domain error behind the field problem.
type ValidationError struct {
	Fields map[string][]string
	Cause  error
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

func validationFailure(err error) error {
	if fields := utils.ValidationFields(err); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return err
}
