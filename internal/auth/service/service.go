// Package service implements account signup and login.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"donation-gateway/internal/auth/models"
	"donation-gateway/internal/auth/store"
	"donation-gateway/pkg/derrors"
	"donation-gateway/pkg/sentinel"
)

const minPasswordLen = 8

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, error)
}

// Service handles donor account registration and login.
type Service struct {
	users  store.Store
	tokens TokenIssuer
	logger *slog.Logger
}

func NewService(users store.Store, tokens TokenIssuer, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Signup registers a new account and returns it with a fresh access token.
func (s *Service) Signup(ctx context.Context, email, name, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !govalidator.IsEmail(email) {
		return nil, "", derrors.New(derrors.CodeBadRequest, "a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, "", derrors.Newf(derrors.CodeBadRequest, "password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", derrors.New(derrors.CodeConflict, "email is already registered")
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, token, nil
}

// Login verifies the credentials and returns the account with a fresh access
// token. Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", derrors.New(derrors.CodeUnauthenticated, "invalid email or password")
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", derrors.New(derrors.CodeUnauthenticated, "invalid email or password")
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, token, nil
}
