package ratelimit

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler limits requests per client IP and route. Redis failures let the
// request through and are logged.
func (l *SlidingWindowLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Unable to determine client IP address",
			})
		}

		result, err := l.Allow(c.UserContext(), c.Path()+":"+ip)
		if err != nil {
			log.Printf("[ratelimit] check failed for %s: %v", ip, err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

// sendRateLimitExceeded sends a 429 with the same failure shape as the
// rest of the application.
func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fmt.Sprintf("Too many attempts. Please retry after %d seconds.", retryAfter),
	})
}
