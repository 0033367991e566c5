package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the relational collaborator for user records.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthService handles registration, login and token refresh.
type AuthService struct {
	store  UserStore
	jwtCfg middleware.JWTConfig
}

// NewAuthService creates a new authentication service.
func NewAuthService(store UserStore, jwtCfg middleware.JWTConfig) *AuthService {
	return &AuthService{store: store, jwtCfg: jwtCfg}
}

// Register creates a user with a bcrypt password hash and issues a token pair.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)
	return middleware.GenerateTokenPair(user, s.jwtCfg)
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, port.ErrUserNotFound) {
		return nil, port.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, port.ErrAccountDisabled
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, port.ErrInvalidCredentials
	}

	slog.Info("user logged in", "user_id", user.ID)
	return middleware.GenerateTokenPair(user, s.jwtCfg)
}

// Refresh exchanges a valid refresh token for a fresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := middleware.ParseToken(refreshToken, s.jwtCfg)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != middleware.TokenTypeRefresh {
		return nil, port.ErrTokenInvalid
	}

	user, err := s.store.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, port.ErrAccountDisabled
	}

	return middleware.GenerateTokenPair(user, s.jwtCfg)
}

// CurrentUser loads the user behind an authenticated context.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUserByID(ctx, userID)
}
