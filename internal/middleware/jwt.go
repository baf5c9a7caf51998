package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens. Websocket
// upgrades may carry the token in the access_token query parameter instead.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, message := bearerToken(c)
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if userID := extractUserIDFromClaims(claims); userID != nil {
			c.Locals("user_id", *userID)
		}
		if role := extractUserRoleFromClaims(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, string) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		if isUpgrade(c) {
			if token := strings.TrimSpace(c.Query("access_token")); token != "" {
				return token, ""
			}
		}
		return "", "authorization header missing"
	}

	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		return "", "invalid authorization header"
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", "invalid token"
	}
	return token, ""
}

func isUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

// roleAliases maps legacy role names onto the platform roles.
var roleAliases = map[string]string{
	"teacher": "instructor",
}

func canonicalRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if alias, ok := roleAliases[role]; ok {
		return alias
	}
	return role
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return canonicalRole(v)
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := canonicalRole(str)
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
