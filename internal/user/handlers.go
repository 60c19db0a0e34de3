package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/httpx"
	"sharedrop/internal/models"
)

const ErrCodeAlreadyExists = "ALREADY_EXISTS"

// AuthService issues session tokens for authenticated users
type AuthService interface {
	GenerateToken(user *models.User) (string, time.Time, error)
}

type Handler struct {
	service     Service
	authService AuthService
}

func NewHandler(service Service, authService AuthService) *Handler {
	return &Handler{
		service:     service,
		authService: authService,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !httpx.DecodeJSON(w, r, "user.Register", &req) {
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			httpx.HandleError(w, &httpx.APIError{Code: ErrCodeAlreadyExists, Message: "Email already exists"}, http.StatusConflict)
		case errors.Is(err, ErrUsernameExists):
			httpx.HandleError(w, &httpx.APIError{Code: ErrCodeAlreadyExists, Message: "Username already exists"}, http.StatusConflict)
		default:
			log.Error().
				Err(err).
				Str("username", req.Username).
				Msg("failed to register user")
			httpx.WriteError(w, r, err)
		}
		return
	}

	h.issueSession(w, r, user, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpx.DecodeJSON(w, r, "user.Login", &req) {
		return
	}

	user, err := h.service.ValidateCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.HandleError(w, &httpx.APIError{Code: httpx.ErrCodeUnauthorized, Message: "Invalid credentials"}, http.StatusUnauthorized)
			return
		}
		httpx.WriteError(w, r, err)
		return
	}

	h.issueSession(w, r, user, http.StatusOK)
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, expiresAt, err := h.authService.GenerateToken(user)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("failed to generate auth token")
		httpx.WriteError(w, r, err)
		return
	}

	// Set JWT cookie with appropriate security flags
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Expires:  expiresAt,
	})

	httpx.WriteJSON(w, status, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
