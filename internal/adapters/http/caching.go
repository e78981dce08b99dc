package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set one.
// Post data changes live, so only single posts are cacheable by clients.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"
		case path == "/metrics":
			ttl = "no-cache"
		case strings.HasPrefix(path, "/v1/posts/nearby"):
			ttl = "public, max-age=15" // The live map is authoritative
		case strings.HasPrefix(path, "/v1/posts/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" && c.Response().StatusCode() == fiber.StatusOK {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
