package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ScheduledEnvelope records a dispatch together with its requested delay.
type ScheduledEnvelope struct {
	Envelope Envelope
	Delay    time.Duration
}

// MemoryQueue is an in-process queue used when no broker is configured and in
// tests. With delays disabled, retries are queued immediately but the
// requested delay is still recorded when history is kept.
type MemoryQueue struct {
	mu          sync.Mutex
	pending     []Envelope
	dispatched  map[string]int
	history     []ScheduledEnvelope
	keepHistory bool
	notify      chan struct{}
	honorDelays bool
	closed      bool
}

// MemoryOption configures a MemoryQueue.
type MemoryOption func(*MemoryQueue)

// WithoutDelays makes DispatchAfter enqueue immediately.
func WithoutDelays() MemoryOption {
	return func(q *MemoryQueue) { q.honorDelays = false }
}

// WithHistory retains every dispatched envelope for inspection through History.
// Retained envelopes are never released, so only tests should enable it.
func WithHistory() MemoryOption {
	return func(q *MemoryQueue) { q.keepHistory = true }
}

// NewMemoryQueue constructs an in-memory queue that honours retry delays.
func NewMemoryQueue(opts ...MemoryOption) *MemoryQueue {
	q := &MemoryQueue{
		dispatched:  make(map[string]int),
		notify:      make(chan struct{}, 1),
		honorDelays: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *MemoryQueue) Dispatch(ctx context.Context, env Envelope) error {
	return q.DispatchAfter(ctx, env, 0)
}

func (q *MemoryQueue) DispatchAfter(_ context.Context, env Envelope, delay time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("memory queue closed")
	}
	q.dispatched[env.Name]++
	if q.keepHistory {
		q.history = append(q.history, ScheduledEnvelope{Envelope: env, Delay: delay})
	}
	honor := q.honorDelays
	q.mu.Unlock()

	if honor && delay > 0 {
		time.AfterFunc(delay, func() { q.push(env) })
		return nil
	}
	q.push(env)
	return nil
}

func (q *MemoryQueue) push(env Envelope) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, env)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) pop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Envelope{}, false
	}
	env := q.pending[0]
	q.pending[0] = Envelope{}
	q.pending = q.pending[1:]
	return env, true
}

// Run consumes jobs until ctx is cancelled.
func (q *MemoryQueue) Run(ctx context.Context, w *Worker) {
	for {
		for {
			env, ok := q.pop()
			if !ok {
				break
			}
			_ = w.Process(ctx, env)
		}

		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.closed = true
			q.mu.Unlock()
			return
		case <-q.notify:
		}
	}
}

// Drain processes pending jobs synchronously, including jobs they dispatch,
// and returns the number processed.
func (q *MemoryQueue) Drain(ctx context.Context, w *Worker) int {
	processed := 0
	for {
		env, ok := q.pop()
		if !ok {
			return processed
		}
		_ = w.Process(ctx, env)
		processed++
	}
}

// Pending returns a copy of jobs waiting to run.
func (q *MemoryQueue) Pending() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Envelope, len(q.pending))
	copy(out, q.pending)
	return out
}

// History returns every dispatch seen by the queue in order. It is empty
// unless the queue was built WithHistory.
func (q *MemoryQueue) History() []ScheduledEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ScheduledEnvelope, len(q.history))
	copy(out, q.history)
	return out
}

// CountDispatched returns how many envelopes named name were dispatched.
func (q *MemoryQueue) CountDispatched(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dispatched[name]
}
