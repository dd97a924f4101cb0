package gateway

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

// offlinePage is the document served to navigations that cannot be satisfied
// from the network or the cache.
//
//go:embed offline.html
var offlinePage []byte

func serveOfflinePage(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusServiceUnavailable).Send(offlinePage)
}
