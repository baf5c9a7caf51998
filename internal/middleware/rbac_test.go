package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(userID interface{}, role string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(guard)
	app.Get("/admin", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		userID interface{}
		role   string
		want   int
	}{
		{name: "admin allowed", userID: uint(1), role: "admin", want: fiber.StatusOK},
		{name: "instructor allowed", userID: uint(2), role: "Instructor", want: fiber.StatusOK},
		{name: "legacy teacher role maps to instructor", userID: uint(3), role: "teacher", want: fiber.StatusOK},
		{name: "student forbidden", userID: uint(4), role: "student", want: fiber.StatusForbidden},
		{name: "anonymous unauthorized", role: "admin", want: fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := roleApp(tc.userID, tc.role, RequireStaff())

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
