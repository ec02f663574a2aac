package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/pkg/auth"
	"github.com/carehospital/admin-api/pkg/logger"
	"github.com/carehospital/admin-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

// Service authenticates the single configured admin account.
type Service struct {
	username     string
	passwordHash string
	hasher       security.PasswordHasher
	jwtSvc       auth.JWTService
}

func NewService(username, passwordHash string, hasher security.PasswordHasher, jwtSvc auth.JWTService) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		hasher:       hasher,
		jwtSvc:       jwtSvc,
	}
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	if s.passwordHash == "" {
		return nil, ErrLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	if err := s.hasher.Compare(s.passwordHash, req.Password); err != nil || !userOK {
		logger.FromContext(ctx).Warn().Str("username", req.Username).Msg("failed admin login")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(s.username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logger.FromContext(ctx).Info().Str("username", s.username).Msg("admin logged in")
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}
