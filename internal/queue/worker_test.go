package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failUntil int
	calls     int
	failed    []error
	err       error
}

func (h *flakyHandler) Name() string { return "test.flaky" }

func (h *flakyHandler) RetryPolicy() RetryPolicy { return StandardRetry() }

func (h *flakyHandler) Handle(ctx context.Context, env Envelope) error {
	h.calls++
	if h.err != nil {
		return h.err
	}
	if h.calls < h.failUntil {
		return errors.New("transient")
	}
	return nil
}

func (h *flakyHandler) Failed(ctx context.Context, env Envelope, err error) {
	h.failed = append(h.failed, err)
}

func newTestWorker(h Handler) (*MemoryQueue, *Worker) {
	q := NewMemoryQueue(WithoutDelays(), WithHistory())
	w := NewWorker(q, zerolog.Nop())
	w.Register(h)
	return q, w
}

func TestWorkerRetriesWithBackoffUntilSuccess(t *testing.T) {
	h := &flakyHandler{failUntil: 3}
	q, w := newTestWorker(h)

	_, err := Dispatch(context.Background(), q, h.Name(), map[string]int{"id": 1})
	require.NoError(t, err)

	processed := q.Drain(context.Background(), w)
	require.Equal(t, 3, processed)
	require.Equal(t, 3, h.calls)
	require.Empty(t, h.failed)

	history := q.History()
	require.Len(t, history, 3)
	require.Equal(t, time.Duration(0), history[0].Delay)
	require.Equal(t, 10*time.Second, history[1].Delay)
	require.Equal(t, 2, history[1].Envelope.Attempt)
	require.Equal(t, 30*time.Second, history[2].Delay)
	require.Equal(t, 3, history[2].Envelope.Attempt)
}

func TestWorkerGivesUpAfterTriesAndCallsFailed(t *testing.T) {
	h := &flakyHandler{failUntil: 10}
	q, w := newTestWorker(h)

	_, err := Dispatch(context.Background(), q, h.Name(), struct{}{})
	require.NoError(t, err)

	q.Drain(context.Background(), w)
	require.Equal(t, 3, h.calls)
	require.Len(t, h.failed, 1)
	require.Equal(t, 3, q.CountDispatched(h.Name()))
}

func TestWorkerDeleteSkipsRetries(t *testing.T) {
	h := &flakyHandler{err: Delete(errors.New("duplicate email"))}
	q, w := newTestWorker(h)

	_, err := Dispatch(context.Background(), q, h.Name(), struct{}{})
	require.NoError(t, err)

	q.Drain(context.Background(), w)
	require.Equal(t, 1, h.calls)
	require.Empty(t, h.failed)
	require.Equal(t, 1, q.CountDispatched(h.Name()))
}

func TestWorkerUnknownJob(t *testing.T) {
	q := NewMemoryQueue(WithoutDelays())
	w := NewWorker(q, zerolog.Nop())

	env, err := NewEnvelope("missing.job", struct{}{})
	require.NoError(t, err)
	require.ErrorIs(t, w.Process(context.Background(), env), ErrUnknownJob)
}

func TestMemoryQueueDropsProcessedJobsWithoutHistory(t *testing.T) {
	h := &flakyHandler{}
	q := NewMemoryQueue(WithoutDelays())
	w := NewWorker(q, zerolog.Nop())
	w.Register(h)

	for i := 0; i < 10000; i++ {
		_, err := Dispatch(context.Background(), q, h.Name(), map[string]int{"id": i})
		require.NoError(t, err)
	}

	require.Equal(t, 10000, q.Drain(context.Background(), w))
	require.Empty(t, q.Pending())
	require.Empty(t, q.History())
	require.Equal(t, 10000, q.CountDispatched(h.Name()))
}

func TestRetryPolicyDelayRepeatsLastBackoff(t *testing.T) {
	policy := StandardRetry()
	require.Equal(t, 10*time.Second, policy.Delay(1))
	require.Equal(t, 60*time.Second, policy.Delay(3))
	require.Equal(t, 60*time.Second, policy.Delay(7))
	require.Zero(t, RetryPolicy{}.Delay(1))
}

func TestMemoryQueueRunHonoursContext(t *testing.T) {
	h := &flakyHandler{failUntil: 1}
	q := NewMemoryQueue()
	w := NewWorker(q, zerolog.Nop())
	w.Register(h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx, w)
		close(done)
	}()

	_, err := Dispatch(ctx, q, h.Name(), struct{}{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(q.Pending()) == 0 && q.CountDispatched(h.Name()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("memory queue did not stop")
	}
}
