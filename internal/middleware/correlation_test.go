package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/trace", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c) + "|" + CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCorrelationIDEchoesInboundHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(HeaderCorrelationID, "  abc-123 ")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(HeaderCorrelationID))
	require.Equal(t, "abc-123|abc-123", readBody(t, resp))
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-9")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get(HeaderCorrelationID))
}

func TestCorrelationIDMintsUUID(t *testing.T) {
	resp, err := correlationApp().Test(httptest.NewRequest(http.MethodGet, "/trace", nil))
	require.NoError(t, err)

	_, err = uuid.Parse(resp.Header.Get(HeaderCorrelationID))
	require.NoError(t, err)
}

func TestContextWithCorrelationIgnoresBlank(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), "   ")
	require.Empty(t, CorrelationIDFromContext(ctx))

	ctx = ContextWithCorrelation(context.TODO(), "job-1")
	require.Equal(t, "job-1", CorrelationIDFromContext(ctx))
}

func TestRateLimitRejectsAfterMax(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit("test", 2, time.Minute))
	app.Post("/apply", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/apply", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/apply", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestObservabilitySkipsOtherPrefixes(t *testing.T) {
	app := fiber.New()
	app.Use(Observability(zerolog.Nop(), AdminPrefix))
	app.Get("/api/v2/courses", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get(AdminPrefix+"/courses/:id", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/courses", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, AdminPrefix+"/courses/7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=100ms", latencyBucket(100*time.Millisecond))
	require.Equal(t, ">500ms", latencyBucket(time.Second))
}
