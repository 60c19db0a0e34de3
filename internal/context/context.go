package context

import (
	"context"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	userContextKey contextKey = "user"
)

// UserInfo is the authenticated principal attached to a request
type UserInfo struct {
	ID       uuid.UUID
	Username string
}

// GetUserFromContext retrieves user info from context
func GetUserFromContext(ctx context.Context) *UserInfo {
	// If already stored in context, return it
	if user, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return user
	}

	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return nil
	}

	// Otherwise parse from JWT claims
	return UserFromClaims(claims)
}

// UserFromClaims creates UserInfo from JWT claims
func UserFromClaims(claims map[string]interface{}) *UserInfo {
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	if userID == "" || username == "" {
		return nil
	}
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return &UserInfo{
		ID:       parsedID,
		Username: username,
	}
}

// WithUser adds user info to the context
func WithUser(ctx context.Context, user *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
