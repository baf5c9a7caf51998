// Package grading holds the pure scoring rules used by the grading, submission
// and course grade services. Nothing here touches storage.
package grading

import (
	"errors"
	"math"
)

const epsilon = 1e-9

var (
	// ErrPenaltyOutOfRange indicates a late penalty outside [0,100].
	ErrPenaltyOutOfRange = errors.New("late penalty must be between 0 and 100")
	// ErrNegativePoints indicates awarded points below zero.
	ErrNegativePoints = errors.New("points awarded must not be negative")
	// ErrPointsExceedCeiling indicates awarded points above the penalised maximum.
	ErrPointsExceedCeiling = errors.New("points awarded exceed maximum after late penalty")
	// ErrInvalidMaxPoints indicates an assignment without a positive maximum.
	ErrInvalidMaxPoints = errors.New("max points must be greater than zero")
	// ErrInvalidAction indicates an unknown grade action.
	ErrInvalidAction = errors.New("grade action must be draft or publish")
)

// Action controls grade visibility.
type Action string

const (
	// ActionDraft keeps the grade hidden from the student.
	ActionDraft Action = "draft"
	// ActionPublish makes the grade visible and counted.
	ActionPublish Action = "publish"
)

// Valid reports whether the action is known.
func (a Action) Valid() bool {
	return a == ActionDraft || a == ActionPublish
}

// GradeInput carries everything needed to validate an award.
type GradeInput struct {
	PointsAwarded   float64
	MaxPoints       float64
	AutoPenalty     float64
	PenaltyOverride *float64
	Action          Action
}

// GradeResult is the validated outcome of a grading decision.
type GradeResult struct {
	PointsAwarded         float64
	MaxPoints             float64
	Penalty               float64
	PenaltyOverridden     bool
	MaxPointsAfterPenalty float64
	Published             bool
}

// EffectivePenalty returns the override when present, otherwise the automatic penalty.
func EffectivePenalty(auto float64, override *float64) (float64, error) {
	penalty := auto
	if override != nil {
		penalty = *override
	}
	if math.IsNaN(penalty) || penalty < 0 || penalty > 100 {
		return 0, ErrPenaltyOutOfRange
	}
	return penalty, nil
}

// CeilingAfterPenalty computes max_points × (1 − penalty/100), rounded to cents.
func CeilingAfterPenalty(maxPoints, penalty float64) float64 {
	if maxPoints <= 0 {
		return 0
	}
	return Round2(maxPoints * (1 - penalty/100))
}

// ValidateAward checks that points fall inside [0, ceiling].
func ValidateAward(points, ceiling float64) error {
	if points < 0 {
		return ErrNegativePoints
	}
	if points > ceiling+epsilon {
		return ErrPointsExceedCeiling
	}
	return nil
}

// Compute validates a grading decision and derives its penalised ceiling.
func Compute(in GradeInput) (GradeResult, error) {
	if in.MaxPoints <= 0 {
		return GradeResult{}, ErrInvalidMaxPoints
	}
	if !in.Action.Valid() {
		return GradeResult{}, ErrInvalidAction
	}

	penalty, err := EffectivePenalty(in.AutoPenalty, in.PenaltyOverride)
	if err != nil {
		return GradeResult{}, err
	}

	ceiling := CeilingAfterPenalty(in.MaxPoints, penalty)
	if err := ValidateAward(in.PointsAwarded, ceiling); err != nil {
		return GradeResult{}, err
	}

	return GradeResult{
		PointsAwarded:         Round2(in.PointsAwarded),
		MaxPoints:             in.MaxPoints,
		Penalty:               penalty,
		PenaltyOverridden:     in.PenaltyOverride != nil,
		MaxPointsAfterPenalty: ceiling,
		Published:             in.Action == ActionPublish,
	}, nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
