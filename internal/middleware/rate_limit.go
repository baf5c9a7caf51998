package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// RateLimit throttles a route group to max requests per window. Authenticated
// callers are bucketed by user id, anonymous ones (public admissions) by IP.
func RateLimit(bucket string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
				return bucket + ":user:" + strconv.FormatUint(uint64(id), 10)
			}
			return bucket + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
