package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSQueue publishes envelopes to per-job subjects and consumes them through
// a queue group so several worker processes share the load.
type NATSQueue struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSQueue wires a queue onto an established NATS connection.
func NewNATSQueue(conn *nats.Conn, prefix string, logger zerolog.Logger) *NATSQueue {
	prefix = strings.Trim(strings.ReplaceAll(prefix, ":", "."), ".")
	if prefix == "" {
		prefix = "gema"
	}
	return &NATSQueue{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "nats_queue").Logger(),
	}
}

// Subject returns the subject jobs named name are published on.
func (q *NATSQueue) Subject(name string) string {
	return q.prefix + ".jobs." + name
}

func (q *NATSQueue) Dispatch(_ context.Context, env Envelope) error {
	if q.conn == nil {
		return errors.New("nats connection not configured")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return q.conn.Publish(q.Subject(env.Name), payload)
}

// DispatchAfter holds delayed retries in this process and publishes them once
// the delay elapses.
func (q *NATSQueue) DispatchAfter(ctx context.Context, env Envelope, delay time.Duration) error {
	if delay <= 0 {
		return q.Dispatch(ctx, env)
	}
	time.AfterFunc(delay, func() {
		if err := q.Dispatch(context.Background(), env); err != nil {
			q.logger.Error().Err(err).Str("job", env.Name).Str("job_id", env.ID).Msg("failed to publish delayed job")
		}
	})
	return nil
}

// Consume subscribes concurrency members of group to every job the worker
// handles. Subscriptions drain when ctx is cancelled.
func (q *NATSQueue) Consume(ctx context.Context, w *Worker, group string, concurrency int) error {
	if q.conn == nil {
		return errors.New("nats connection not configured")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if group == "" {
		group = "gema-workers"
	}

	subs := make([]*nats.Subscription, 0)
	for _, name := range w.Names() {
		for i := 0; i < concurrency; i++ {
			sub, err := q.conn.QueueSubscribe(q.Subject(name), group, func(msg *nats.Msg) {
				var env Envelope
				if err := json.Unmarshal(msg.Data, &env); err != nil {
					q.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("invalid job envelope")
					return
				}
				_ = w.Process(ctx, env)
			})
			if err != nil {
				for _, s := range subs {
					_ = s.Unsubscribe()
				}
				return fmt.Errorf("subscribe %s: %w", name, err)
			}
			subs = append(subs, sub)
		}
	}

	q.logger.Info().Strs("jobs", w.Names()).Int("concurrency", concurrency).Msg("job consumers started")

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			if err := sub.Drain(); err != nil {
				q.logger.Warn().Err(err).Str("subject", sub.Subject).Msg("failed to drain job subscription")
			}
		}
	}()

	return nil
}
