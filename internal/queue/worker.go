package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-lms-api/internal/observability"
)

const defaultJobTimeout = time.Minute

// Worker executes envelopes against registered handlers and reschedules
// failed attempts according to the handler's retry policy.
type Worker struct {
	queue    Queue
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewWorker creates a worker that reschedules retries on q.
func NewWorker(q Queue, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:    q,
		handlers: make(map[string]Handler),
		logger:   logger.With().Str("component", "queue_worker").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-lms-api/internal/queue"),
	}
}

// Register adds handlers keyed by their job name.
func (w *Worker) Register(handlers ...Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range handlers {
		w.handlers[h.Name()] = h
	}
}

// Names lists registered job names in stable order.
func (w *Worker) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *Worker) handler(name string) (Handler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[name]
	return h, ok
}

func policyFor(h Handler) RetryPolicy {
	policy := RetryPolicy{Tries: 1, Timeout: defaultJobTimeout}
	if r, ok := h.(Retryable); ok {
		policy = r.RetryPolicy()
	}
	if policy.Tries <= 0 {
		policy.Tries = 1
	}
	if policy.Timeout <= 0 {
		policy.Timeout = defaultJobTimeout
	}
	return policy
}

// Process runs a single delivery of env. Retries are handed back to the queue;
// the returned error is non-nil only when the job has failed for good.
func (w *Worker) Process(ctx context.Context, env Envelope) error {
	h, ok := w.handler(env.Name)
	if !ok {
		w.logger.Error().Str("job", env.Name).Str("job_id", env.ID).Msg("no handler registered for job")
		observability.JobsProcessed().WithLabelValues(env.Name, "unknown").Inc()
		return ErrUnknownJob
	}

	if env.Attempt <= 0 {
		env.Attempt = 1
	}
	policy := policyFor(h)

	logger := w.logger.With().Str("job", env.Name).Str("job_id", env.ID).Int("attempt", env.Attempt).Logger()

	spanCtx, span := w.tracer.Start(ctx, "queue.process", trace.WithAttributes(
		attribute.String("job.name", env.Name),
		attribute.String("job.id", env.ID),
		attribute.Int("job.attempt", env.Attempt),
	))
	defer span.End()

	runCtx, cancel := context.WithTimeout(spanCtx, policy.Timeout)
	start := time.Now()
	err := h.Handle(runCtx, env)
	cancel()
	observability.JobDuration().WithLabelValues(env.Name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		observability.JobsProcessed().WithLabelValues(env.Name, "succeeded").Inc()
		logger.Debug().Msg("job completed")
		return nil
	case errors.Is(err, ErrDeleteJob):
		observability.JobsProcessed().WithLabelValues(env.Name, "deleted").Inc()
		span.SetAttributes(attribute.Bool("job.deleted", true))
		logger.Info().Err(err).Msg("job deleted without retry")
		return nil
	}

	span.RecordError(err)
	if env.Attempt < policy.Tries {
		delay := policy.Delay(env.Attempt)
		next := env
		next.Attempt = env.Attempt + 1
		dispatchErr := w.queue.DispatchAfter(ctx, next, delay)
		if dispatchErr == nil {
			observability.JobsProcessed().WithLabelValues(env.Name, "retried").Inc()
			logger.Warn().Err(err).Dur("backoff", delay).Msg("job failed, retry scheduled")
			return nil
		}
		logger.Error().Err(dispatchErr).Msg("failed to schedule job retry")
	}

	span.SetStatus(codes.Error, "job_failed")
	observability.JobsProcessed().WithLabelValues(env.Name, "failed").Inc()
	logger.Error().Err(err).Msg("job failed permanently")
	if fh, ok := h.(FailureHandler); ok {
		fh.Failed(ctx, env, err)
	}
	return err
}
