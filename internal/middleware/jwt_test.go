package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func jwtApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(secret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func TestJWTProtectedPopulatesLocals(t *testing.T) {
	app := jwtApp("secret")
	token := signToken(t, "secret", jwt.MapClaims{"sub": "12", "role": "teacher", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	require.Equal(t, uint(12), body.UserID)
	require.Equal(t, "instructor", body.Role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := jwtApp("secret")
	expired := signToken(t, "secret", jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()})
	foreign := signToken(t, "other", jwt.MapClaims{"sub": 1})

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestJWTProtectedAcceptsQueryTokenOnUpgrade(t *testing.T) {
	app := jwtApp("secret")
	token := signToken(t, "secret", jwt.MapClaims{"sub": 5, "role": "student"})

	req := httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func decodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
