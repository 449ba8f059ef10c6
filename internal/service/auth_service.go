package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	API      *mockapi.Client
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, api *mockapi.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		API:      api,
		Cfg:      cfg,
	}
}

// isDemoCredential 演示账号：邮箱或密码包含 demo 即可登录
func isDemoCredential(email, password string) bool {
	return strings.Contains(email, "demo") || strings.Contains(password, "demo")
}

func demoRole(email string) model.UserRole {
	if strings.Contains(email, "admin") {
		return model.Admin
	}
	return model.Learner
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, util.ErrInvalidPassword
	}

	user, err := mockapi.Fetch(ctx, s.API, "POST", "/api/auth/login", func(ctx context.Context) (*model.User, error) {
		return s.authenticate(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, util.ErrPermissionDenied
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.Log.Warn("Failed to record last login", zap.String("userId", user.ID), zap.Error(err))
	}
	logger.Log.Info("User logged in", zap.String("userId", user.ID), zap.String("role", string(user.Role)))
	return &LoginResponse{Token: token, User: user}, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil {
			return user, nil
		}
		if s.Cfg.Auth.DemoLogin && isDemoCredential(email, password) {
			return user, nil
		}
		return nil, util.ErrInvalidPassword
	case !errors.Is(err, util.ErrNotFound):
		return nil, err
	}

	if !s.Cfg.Auth.DemoLogin || !isDemoCredential(email, password) {
		return nil, util.ErrInvalidPassword
	}

	// 首次使用的演示账号落库，保证令牌中的用户 ID 可解析
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user = &model.User{
		Name:     strings.SplitN(email, "@", 2)[0],
		Email:    email,
		Password: string(hashed),
		Role:     demoRole(email),
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("Demo user provisioned", zap.String("userId", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// HasRole 用户角色是否在给定集合中
func HasRole(user *model.User, roles ...model.UserRole) bool {
	if user == nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

func (s *AuthService) GetCurrentUser(c *gin.Context) (*model.User, error) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil, util.ErrPermissionDenied
	}
	return s.UserRepo.FindByID(c.Request.Context(), claims.UserID)
}
