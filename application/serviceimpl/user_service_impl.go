package serviceimpl

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/domain/dto"
	"taskboard/domain/models"
	"taskboard/domain/repositories"
	"taskboard/domain/services"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

type UserServiceImpl struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{userRepo: userRepo}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, services.NewValidationError("name", "name is required")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap("lookup email", err)
	}
	if existing != nil {
		logger.WarnContext(ctx, "Email already exists", "email", email)
		return nil, services.ErrEmailTaken
	}

	id := uuid.New()
	user := &models.User{
		ID:     id,
		Name:   name,
		Email:  email,
		Avatar: req.Avatar,
		Color:  utils.UserColor(id),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// unique index ชนกันระหว่าง request พร้อมกัน
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, services.ErrEmailTaken
		}
		logger.ErrorContext(ctx, "Failed to create user", "email", email, "error", err)
		return nil, wrap("create user", err)
	}

	logger.InfoContext(ctx, "User created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, services.ErrUserNotFound)
	}
	return user, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.List(ctx)
}
