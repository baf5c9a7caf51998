package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/observability"
)

var latencyBuckets = []struct {
	limit time.Duration
	label string
}{
	{25 * time.Millisecond, "<=25ms"},
	{50 * time.Millisecond, "<=50ms"},
	{100 * time.Millisecond, "<=100ms"},
	{250 * time.Millisecond, "<=250ms"},
	{500 * time.Millisecond, "<=500ms"},
}

// Observability records request metrics and one access log line for every
// request whose path starts with prefix. Other paths pass through untouched.
func Observability(logger zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) {
			return c.Next()
		}

		started := time.Now()
		err := c.Next()
		elapsed := time.Since(started)

		// Next may have produced an error the app handler has not rendered yet.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := matchedRoute(c)
		method := c.Method()
		code := strconv.Itoa(status)

		observability.AdminRequests().WithLabelValues(method, route, code).Inc()
		observability.AdminLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.AdminErrors().WithLabelValues(method, route, code).Inc()
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Str("latency_bucket", latencyBucket(elapsed)).
			Uint("user_id", localUserID(c)).
			Msg("admin request")

		return err
	}
}

// matchedRoute prefers the registered template so ids do not explode label cardinality.
func matchedRoute(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

func latencyBucket(d time.Duration) string {
	for _, b := range latencyBuckets {
		if d <= b.limit {
			return b.label
		}
	}
	return ">500ms"
}

func localUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}
