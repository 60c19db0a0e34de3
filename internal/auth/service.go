package auth

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"sharedrop/internal/models"
)

const TokenExpiry = time.Hour * 24

type Service interface {
	GetAuth() *jwtauth.JWTAuth
	GenerateToken(user *models.User) (string, time.Time, error)
}

type authService struct {
	tokenAuth *jwtauth.JWTAuth
	expiry    time.Duration
	now       func() time.Time
}

// NewService creates a new auth service signing HS256 tokens with secretKey
func NewService(secretKey string) (Service, error) {
	if secretKey == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &authService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil),
		expiry:    TokenExpiry,
		now:       time.Now,
	}, nil
}

// GetAuth returns the JWTAuth instance for middleware
func (s *authService) GetAuth() *jwtauth.JWTAuth {
	return s.tokenAuth
}

// GenerateToken creates a new JWT token for a user
func (s *authService) GenerateToken(user *models.User) (string, time.Time, error) {
	expiresAt := s.now().Add(s.expiry)
	claims := map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	}
	jwtauth.SetIssuedAt(claims, s.now())
	jwtauth.SetExpiry(claims, expiresAt)

	_, tokenString, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}
