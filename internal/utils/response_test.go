package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/utils"
)

func TestSendSuccessDefaultsMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", map[string]string{"hello": "world"})
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "world", payload.Data["hello"])
}

func TestSendValidationErrorIncludesFields(t *testing.T) {
	type request struct {
		Email  string `json:"email" validate:"required,email"`
		Action string `json:"action" validate:"required,oneof=draft publish"`
	}

	validate := utils.NewValidator()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		err := validate.Struct(request{Email: "nope", Action: "archive"})
		return utils.SendValidationError(c, utils.ValidationFields(err))
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decode(t, resp, &payload)

	require.False(t, payload.Success)
	require.Equal(t, []string{"must be a valid email address"}, payload.Errors["email"])
	require.Equal(t, []string{"must be one of [draft publish]"}, payload.Errors["action"])
}

func TestValidationFieldsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, utils.ValidationFields(http.ErrBodyNotAllowed))
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
