package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserRequest 管理员创建用户
// swagger:model CreateUserRequest
type CreateUserRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role"`
}

// UpdateUserRequest 仅更新非空字段
// swagger:model UpdateUserRequest
type UpdateUserRequest struct {
	Name     *string         `json:"name"`
	Role     *model.UserRole `json:"role"`
	Disabled *bool           `json:"disabled"`
	Password string          `json:"password"`
}

// UserService 管理端用户维护
type UserService struct {
	UserRepo *repository.UserRepository
	API      *mockapi.Client
}

func NewUserService(userRepo *repository.UserRepository, api *mockapi.Client) *UserService {
	return &UserService{
		UserRepo: userRepo,
		API:      api,
	}
}

// ListUsers 分页获取用户列表，role 为空时返回全部
func (s *UserService) ListUsers(ctx context.Context, role model.UserRole, page, limit int) (*util.PageResponse, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", util.ErrValidation, role)
	}
	var users []model.User
	var total int64
	err := s.API.Do(ctx, "GET", "/api/admin/users", func(ctx context.Context) error {
		var err error
		users, total, err = s.UserRepo.List(ctx, role, page, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return mockapi.Fetch(ctx, s.API, "GET", "/api/admin/users/"+id, func(ctx context.Context) (*model.User, error) {
		return s.UserRepo.FindByID(ctx, id)
	})
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.Learner
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", util.ErrValidation, role)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}

	err = s.API.Do(ctx, "POST", "/api/admin/users", func(ctx context.Context) error {
		_, err := s.UserRepo.FindByEmail(ctx, email)
		if err == nil {
			return fmt.Errorf("%w: email %s already registered", util.ErrInvalidState, email)
		}
		if !errors.Is(err, util.ErrNotFound) {
			return err
		}
		return s.UserRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("User created", zap.String("userId", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, req *UpdateUserRequest) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", util.ErrValidation)
		}
		user.Name = name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", util.ErrValidation, *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	err = s.API.Do(ctx, "PUT", "/api/admin/users/"+id, func(ctx context.Context) error {
		return s.UserRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	err := s.API.Do(ctx, "DELETE", "/api/admin/users/"+id, func(ctx context.Context) error {
		return s.UserRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.Log.Info("User deleted", zap.String("userId", id))
	return nil
}
