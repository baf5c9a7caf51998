package grading

import (
	"errors"
	"math"
	"time"
)

// ErrLateSubmissionRejected indicates the assignment does not accept late work.
var ErrLateSubmissionRejected = errors.New("assignment does not accept late submissions")

// ErrInvalidLatePolicy indicates an unknown policy or a rate outside [0,100].
var ErrInvalidLatePolicy = errors.New("invalid late policy")

// LatePolicyKind enumerates how late submissions are treated.
type LatePolicyKind string

const (
	// LatePolicyAllow accepts late work without deduction.
	LatePolicyAllow LatePolicyKind = "allow"
	// LatePolicyPenalty deducts a percentage per late day.
	LatePolicyPenalty LatePolicyKind = "penalty"
	// LatePolicyReject refuses submissions after the deadline.
	LatePolicyReject LatePolicyKind = "reject"
)

// LatePolicy pairs the kind with its per-day deduction.
type LatePolicy struct {
	Kind          LatePolicyKind
	PenaltyPerDay float64
}

// Lateness describes how late a submission is and what it costs.
type Lateness struct {
	IsLate   bool
	LateDays int
	Penalty  float64
}

// LateDays counts started 24h periods past the deadline.
func LateDays(due, submitted time.Time) int {
	if !submitted.After(due) {
		return 0
	}
	return int(math.Ceil(submitted.Sub(due).Hours() / 24))
}

// PenaltyForDays applies the per-day rate, capped at 100.
func PenaltyForDays(days int, perDay float64) float64 {
	if days <= 0 || perDay <= 0 {
		return 0
	}
	return math.Min(100, Round2(float64(days)*perDay))
}

// EvaluateLateness applies the policy to a submission timestamp.
func EvaluateLateness(due, submitted time.Time, policy LatePolicy) (Lateness, error) {
	if policy.PenaltyPerDay < 0 || policy.PenaltyPerDay > 100 {
		return Lateness{}, ErrInvalidLatePolicy
	}

	days := LateDays(due, submitted)
	if days == 0 {
		return Lateness{}, nil
	}

	switch policy.Kind {
	case LatePolicyAllow, "":
		return Lateness{IsLate: true, LateDays: days}, nil
	case LatePolicyPenalty:
		return Lateness{IsLate: true, LateDays: days, Penalty: PenaltyForDays(days, policy.PenaltyPerDay)}, nil
	case LatePolicyReject:
		return Lateness{IsLate: true, LateDays: days}, ErrLateSubmissionRejected
	default:
		return Lateness{}, ErrInvalidLatePolicy
	}
}
