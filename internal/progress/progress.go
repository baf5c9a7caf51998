// Package progress models a student's way through a module's primary exam and
// retake. Every change goes through one of the transition functions below.
package progress

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a module for one student.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusExamFailed Status = "exam_failed"
	StatusExamLocked Status = "exam_locked"
)

// AttemptKind tells which exam an attempt was recorded against.
type AttemptKind string

const (
	AttemptPrimary AttemptKind = "primary"
	AttemptRetake  AttemptKind = "retake"
)

var (
	// ErrInvalidTransition indicates the event is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid module progress transition")
	// ErrExamLocked indicates both exams were failed and no unlock was granted.
	ErrExamLocked = errors.New("module exam is locked")
	// ErrAlreadyCompleted indicates the module exam was already passed.
	ErrAlreadyCompleted = errors.New("module already completed")
	// ErrInvalidScore indicates a score outside [0,100].
	ErrInvalidScore = errors.New("exam score must be between 0 and 100")
	// ErrMissingPassEvent indicates a completed state without a pass timestamp.
	ErrMissingPassEvent = errors.New("completed module requires exam pass time")
)

// State is the persisted progress of a student in a module.
type State struct {
	Status            Status
	ExamAttemptsUsed  int
	ExamFirstScore    *float64
	ExamBestScore     *float64
	PrimaryExamFailed bool
	RetakeExamFailed  bool
	RetakeUnlockedAt  *time.Time
	StartedAt         *time.Time
	ExamPassedAt      *time.Time
}

// Outcome describes what an exam attempt did.
type Outcome struct {
	Kind   AttemptKind
	Passed bool
	Locked bool
}

// Normalize treats the zero status as not started.
func (s State) Normalize() State {
	if s.Status == "" {
		s.Status = StatusNotStarted
	}
	return s
}

// Validate checks the invariants a persisted state must hold.
func Validate(s State) error {
	switch s.Normalize().Status {
	case StatusNotStarted, StatusInProgress, StatusExamFailed, StatusExamLocked:
	case StatusCompleted:
		if s.ExamPassedAt == nil {
			return ErrMissingPassEvent
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Start moves a module into progress. Starting twice is a no-op.
func Start(s State, now time.Time) (State, error) {
	s = s.Normalize()
	switch s.Status {
	case StatusNotStarted:
		started := now
		s.Status = StatusInProgress
		s.StartedAt = &started
		return s, nil
	case StatusInProgress:
		return s, nil
	default:
		return s, ErrInvalidTransition
	}
}

// CanAttempt reports whether another exam attempt may be recorded.
func CanAttempt(s State) error {
	switch s.Normalize().Status {
	case StatusNotStarted, StatusInProgress, StatusExamFailed:
		return nil
	case StatusExamLocked:
		return ErrExamLocked
	case StatusCompleted:
		return ErrAlreadyCompleted
	default:
		return ErrInvalidTransition
	}
}

// NextAttemptKind returns the exam the next attempt counts against.
func NextAttemptKind(s State) AttemptKind {
	if s.PrimaryExamFailed {
		return AttemptRetake
	}
	return AttemptPrimary
}

// RecordExam applies an exam score (percent) against the pass mark.
func RecordExam(s State, score, passMark float64, now time.Time) (State, Outcome, error) {
	s = s.Normalize()
	if score < 0 || score > 100 {
		return s, Outcome{}, ErrInvalidScore
	}
	if err := CanAttempt(s); err != nil {
		return s, Outcome{}, err
	}

	if s.Status == StatusNotStarted {
		started := now
		s.StartedAt = &started
		s.Status = StatusInProgress
	}

	kind := NextAttemptKind(s)
	s.ExamAttemptsUsed++
	recorded := score
	if s.ExamFirstScore == nil {
		first := recorded
		s.ExamFirstScore = &first
	}
	if s.ExamBestScore == nil || recorded > *s.ExamBestScore {
		best := recorded
		s.ExamBestScore = &best
	}

	if score >= passMark {
		passedAt := now
		s.Status = StatusCompleted
		s.ExamPassedAt = &passedAt
		return s, Outcome{Kind: kind, Passed: true}, nil
	}

	if kind == AttemptPrimary {
		s.PrimaryExamFailed = true
		s.Status = StatusExamFailed
		return s, Outcome{Kind: kind}, nil
	}

	s.RetakeExamFailed = true
	s.Status = StatusExamLocked
	return s, Outcome{Kind: kind, Locked: true}, nil
}

// Unlock grants one more retake to a locked module. There is no automatic
// expiry; an administrator has to call this.
func Unlock(s State, now time.Time) (State, error) {
	s = s.Normalize()
	if s.Status != StatusExamLocked {
		return s, ErrInvalidTransition
	}
	unlockedAt := now
	s.Status = StatusExamFailed
	s.RetakeExamFailed = false
	s.RetakeUnlockedAt = &unlockedAt
	return s, nil
}
