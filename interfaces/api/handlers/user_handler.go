package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/domain/dto"
	"taskboard/domain/services"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req dto.CreateUserRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	logger.InfoContext(ctx, "User creation attempt", "email", req.Email)

	user, err := h.userService.CreateUser(ctx, &req)
	if err != nil {
		return serviceError(c, "User creation", err)
	}

	logger.InfoContext(ctx, "User created", "user_id", user.ID, "email", user.Email)
	return utils.CreatedResponse(c, dto.UserToUserResponse(user))
}

func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, ok, err := parseID(c, "id", "user")
	if !ok {
		return err
	}

	user, err := h.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, "User lookup", err)
	}
	return utils.SuccessResponse(c, dto.UserToUserResponse(user))
}

func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.UserContext())
	if err != nil {
		return serviceError(c, "User listing", err)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *dto.UserToUserResponse(u))
	}
	return utils.SuccessResponse(c, out)
}
