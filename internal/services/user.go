package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/auth"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// UserService is the demo authentication stub. Every login resolves to the demo user.
type UserService struct {
	issuer *auth.Issuer
	demo   models.User
	log    *zap.Logger
}

// NewUserService creates a new user service around the demo user
func NewUserService(issuer *auth.Issuer, demo models.User, log *zap.Logger) *UserService {
	if demo.CreatedAt.IsZero() {
		demo.CreatedAt = time.Now().UTC()
	}
	return &UserService{issuer: issuer, demo: demo, log: log}
}

// Login accepts any credentials with an email and returns the demo user with a signed token
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", store.ErrInvalid)
	}

	token, err := s.issuer.GenerateToken(s.demo)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("Demo login", zap.String("user_id", s.demo.ID))
	return &models.LoginResponse{User: s.demo, Token: token}, nil
}

// CurrentUser returns the user behind a bearer token, or the demo user when no token is sent
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		u := s.demo
		return &u, nil
	}
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	u := claims.User()
	if u.ID == s.demo.ID {
		u.CreatedAt = s.demo.CreatedAt
	}
	return &u, nil
}
