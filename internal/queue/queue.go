// Package queue runs named background jobs with retry and backoff on top of a
// pluggable transport (NATS in production, in-memory for single-node and tests).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDeleteJob marks an expected terminal outcome; the job is not retried.
	ErrDeleteJob = errors.New("job deleted")
	// ErrUnknownJob indicates no handler is registered for the envelope name.
	ErrUnknownJob = errors.New("unknown job")
)

// Envelope is the unit of work carried by a queue.
type Envelope struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Payload      json.RawMessage `json:"payload"`
	Attempt      int             `json:"attempt"`
	DispatchedAt time.Time       `json:"dispatched_at"`
}

// Decode unmarshals the payload into target.
func (e Envelope) Decode(target interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("job %s has empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Name, err)
	}
	return nil
}

// Queue delivers envelopes to workers.
type Queue interface {
	Dispatch(ctx context.Context, env Envelope) error
	DispatchAfter(ctx context.Context, env Envelope, delay time.Duration) error
}

// NewEnvelope builds a first-attempt envelope for the named job.
func NewEnvelope(name string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Envelope{
		ID:           uuid.NewString(),
		Name:         name,
		Payload:      data,
		Attempt:      1,
		DispatchedAt: time.Now().UTC(),
	}, nil
}

// Dispatch encodes payload and hands it to q.
func Dispatch(ctx context.Context, q Queue, name string, payload interface{}) (Envelope, error) {
	if q == nil {
		return Envelope{}, errors.New("queue not configured")
	}
	env, err := NewEnvelope(name, payload)
	if err != nil {
		return Envelope{}, err
	}
	if err := q.Dispatch(ctx, env); err != nil {
		return Envelope{}, fmt.Errorf("dispatch %s: %w", name, err)
	}
	return env, nil
}

// Delete wraps reason so the worker drops the job without retrying.
func Delete(reason error) error {
	if reason == nil {
		return ErrDeleteJob
	}
	return fmt.Errorf("%w: %w", ErrDeleteJob, reason)
}

// Handler processes one job type.
type Handler interface {
	Name() string
	Handle(ctx context.Context, env Envelope) error
}

// RetryPolicy bounds how often and how late a job is retried.
type RetryPolicy struct {
	Tries   int
	Backoff []time.Duration
	Timeout time.Duration
}

// Delay returns the wait before retry number n (1-based); the last backoff
// value repeats once the list is exhausted.
func (p RetryPolicy) Delay(n int) time.Duration {
	if len(p.Backoff) == 0 || n <= 0 {
		return 0
	}
	if n > len(p.Backoff) {
		n = len(p.Backoff)
	}
	return p.Backoff[n-1]
}

// Retryable handlers override the single-try default.
type Retryable interface {
	RetryPolicy() RetryPolicy
}

// FailureHandler handlers are told when a job gives up for good.
type FailureHandler interface {
	Failed(ctx context.Context, env Envelope, err error)
}

// StandardRetry is the 3 tries / 10s, 30s, 60s policy shared by delivery jobs.
func StandardRetry() RetryPolicy {
	return RetryPolicy{
		Tries:   3,
		Backoff: []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
		Timeout: 2 * time.Minute,
	}
}
