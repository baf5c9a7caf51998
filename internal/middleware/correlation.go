package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request trace identifier in both directions.
const HeaderCorrelationID = "X-Correlation-ID"

const localCorrelationID = "correlation_id"

type correlationCtxKey struct{}

// CorrelationID tags every request with a trace identifier. An inbound
// X-Correlation-ID wins, then X-Request-ID, otherwise a fresh uuid is minted.
// The identifier is echoed back and propagated to background jobs.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstNonBlank(c.Get(HeaderCorrelationID), c.Get(fiber.HeaderXRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(localCorrelationID, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))
		return c.Next()
	}
}

// GetCorrelationID returns the identifier assigned to the current request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// CorrelationIDFromContext reads the identifier stored by ContextWithCorrelation.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// ContextWithCorrelation returns ctx carrying id. Blank ids leave ctx untouched.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationCtxKey{}, id)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
