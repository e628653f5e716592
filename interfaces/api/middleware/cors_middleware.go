package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func CorsMiddleware(origins []string) fiber.Handler {
	allow := strings.Join(origins, ",")
	if allow == "" {
		allow = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: allow,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,HEAD",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-User-ID",
		// wildcard origin ใช้ร่วมกับ credentials ไม่ได้
		AllowCredentials: allow != "*",
		ExposeHeaders:    "Content-Length,Content-Type,X-Request-ID",
	})
}
