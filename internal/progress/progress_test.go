package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func TestStartIsIdempotent(t *testing.T) {
	state, err := Start(State{}, now)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, state.Status)
	require.NotNil(t, state.StartedAt)

	again, err := Start(state, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, *state.StartedAt, *again.StartedAt)
}

func TestPassOnPrimary(t *testing.T) {
	state, _ := Start(State{}, now)
	state, outcome, err := RecordExam(state, 82, 60, now)
	require.NoError(t, err)
	require.True(t, outcome.Passed)
	require.Equal(t, AttemptPrimary, outcome.Kind)
	require.Equal(t, StatusCompleted, state.Status)
	require.NotNil(t, state.ExamPassedAt)
	require.NoError(t, Validate(state))

	_, _, err = RecordExam(state, 90, 60, now)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestFailBothLocksUntilUnlock(t *testing.T) {
	state, _ := Start(State{}, now)

	state, outcome, err := RecordExam(state, 40, 60, now)
	require.NoError(t, err)
	require.Equal(t, AttemptPrimary, outcome.Kind)
	require.Equal(t, StatusExamFailed, state.Status)
	require.True(t, state.PrimaryExamFailed)

	state, outcome, err = RecordExam(state, 55, 60, now)
	require.NoError(t, err)
	require.Equal(t, AttemptRetake, outcome.Kind)
	require.True(t, outcome.Locked)
	require.Equal(t, StatusExamLocked, state.Status)
	require.True(t, state.RetakeExamFailed)
	require.Equal(t, 2, state.ExamAttemptsUsed)
	require.Equal(t, 40.0, *state.ExamFirstScore)
	require.Equal(t, 55.0, *state.ExamBestScore)

	_, _, err = RecordExam(state, 99, 60, now)
	require.ErrorIs(t, err, ErrExamLocked)

	state, err = Unlock(state, now)
	require.NoError(t, err)
	require.Equal(t, StatusExamFailed, state.Status)
	require.NotNil(t, state.RetakeUnlockedAt)
	require.False(t, state.RetakeExamFailed)

	state, outcome, err = RecordExam(state, 75, 60, now)
	require.NoError(t, err)
	require.True(t, outcome.Passed)
	require.Equal(t, AttemptRetake, outcome.Kind)
	require.Equal(t, StatusCompleted, state.Status)
	require.Equal(t, 75.0, *state.ExamBestScore)
	require.NoError(t, Validate(state))
}

func TestUnlockOnlyFromLocked(t *testing.T) {
	_, err := Unlock(State{Status: StatusInProgress}, now)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordExamStartsModuleImplicitly(t *testing.T) {
	state, outcome, err := RecordExam(State{}, 30, 60, now)
	require.NoError(t, err)
	require.False(t, outcome.Passed)
	require.NotNil(t, state.StartedAt)
	require.Equal(t, StatusExamFailed, state.Status)
}

func TestRecordExamRejectsScoreOutOfRange(t *testing.T) {
	_, _, err := RecordExam(State{}, 101, 60, now)
	require.ErrorIs(t, err, ErrInvalidScore)
}

func TestCompletedRequiresPassEvent(t *testing.T) {
	require.ErrorIs(t, Validate(State{Status: StatusCompleted}), ErrMissingPassEvent)

	// Walk every reachable sequence of pass/fail/unlock and check the invariant.
	var walk func(State, int)
	walk = func(s State, depth int) {
		require.NoError(t, Validate(s))
		if depth == 0 {
			return
		}
		if next, _, err := RecordExam(s, 90, 60, now); err == nil {
			walk(next, depth-1)
		}
		if next, _, err := RecordExam(s, 10, 60, now); err == nil {
			walk(next, depth-1)
		}
		if next, err := Unlock(s, now); err == nil {
			walk(next, depth-1)
		}
	}
	walk(State{}, 6)
}
