package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/internal/utils"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/impactbridge/marketplace/pkg/response"
)

type AuthService struct {
	store     storage.Storage
	jwtConfig *config.JWTConfig
}

func NewAuthService(store storage.Storage, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		store:     store,
		jwtConfig: jwtCfg,
	}
}

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	UserType    string `json:"userType" binding:"required,oneof=tour_operator commercial_partner private_donor"`
	CompanyName string `json:"companyName" binding:"max=200"`
	FirstName   string `json:"firstName" binding:"max=100"`
	LastName    string `json:"lastName" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string      `json:"token"`
	User     models.User `json:"user"`
	ExpireAt time.Time   `json:"expireAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a donor account. The password is stored as a bcrypt hash
// and never returned.
func (s *AuthService) Register(ctx context.Context, req *CreateUserRequest) (models.User, error) {
	email := normalizeEmail(req.Email)

	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return models.User{}, response.NewConflict("User already exists with this email")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.store.CreateUser(ctx, models.User{
		Username:    strings.TrimSpace(req.Username),
		Email:       email,
		Password:    hash,
		UserType:    req.UserType,
		CompanyName: req.CompanyName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	})
	if errors.Is(err, storage.ErrConflict) {
		return models.User{}, response.NewConflict("User already exists with this username or email")
	}
	if err != nil {
		return models.User{}, err
	}

	logger.Info().Uint("user_id", user.ID).Str("user_type", user.UserType).Msg("user registered")
	return user, nil
}

// Login checks credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	invalid := response.NewUnauthorized("Invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		logger.Warn().Uint("user_id", user.ID).Msg("login failed: wrong password")
		return nil, invalid
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.UserType, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	return user, storeErr(err, "User not found")
}
