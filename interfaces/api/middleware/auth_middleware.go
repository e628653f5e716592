package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

// UserIDHeader ระบุตัวตนแบบไม่ใช้ token (dev / service-to-service)
const UserIDHeader = "X-User-ID"

var errBadUserHeader = errors.New("invalid X-User-ID header")

// resolveIdentity reads a bearer token first, then X-User-ID.
// Returns (nil, nil) when the request carries neither.
func resolveIdentity(c *fiber.Ctx, jwtSecret string) (*utils.UserContext, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return nil, utils.ErrInvalidToken
		}
		return utils.ValidateTokenStringToUUID(token, jwtSecret)
	}

	if raw := strings.TrimSpace(c.Get(UserIDHeader)); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return nil, errBadUserHeader
		}
		return &utils.UserContext{ID: id}, nil
	}
	return nil, nil
}

func setIdentity(c *fiber.Ctx, user *utils.UserContext) {
	c.Locals(utils.UserLocalsKey, user)
	c.SetUserContext(logger.ContextWithUserID(c.UserContext(), user.ID.String()))
}

func unauthorized(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, utils.ErrExpiredToken):
		return utils.UnauthorizedResponse(c, "Token has expired")
	case errors.Is(err, utils.ErrInvalidToken):
		return utils.UnauthorizedResponse(c, "Invalid token")
	case errors.Is(err, errBadUserHeader):
		return utils.UnauthorizedResponse(c, "Invalid X-User-ID header")
	default:
		return utils.UnauthorizedResponse(c, "Authentication required")
	}
}

// Protected requires a bearer token or X-User-ID; the id becomes the origin
// user of every broadcast the request causes.
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveIdentity(c, jwtSecret)
		if err != nil {
			logger.WarnContext(c.UserContext(), "Identity rejected", "path", c.Path(), "error", err)
			return unauthorized(c, err)
		}
		if user == nil {
			return unauthorized(c, nil)
		}
		setIdentity(c, user)
		return c.Next()
	}
}

// Optional sets the user when a valid identity is present and ignores it otherwise
func Optional(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveIdentity(c, jwtSecret)
		if err == nil && user != nil {
			setIdentity(c, user)
		}
		return c.Next()
	}
}

// CurrentUserID returns uuid.Nil for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	user, err := utils.GetUserFromContext(c)
	if err != nil {
		return uuid.Nil
	}
	return user.ID
}
