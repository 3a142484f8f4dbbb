package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/robonav/server/internal/auth"
)

// AuthHandler handles the open account endpoints
type AuthHandler struct {
	authService *auth.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// registerRequest is the request body for POST /api/open/users/register
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerResponse is the JSON response for register
type registerResponse struct {
	Message  string `json:"message"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

// loginRequest is the request body for POST /api/open/users/login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the JSON response for login
type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// resendRequest is the request body for POST /api/open/users/resend-confirmation
type resendRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleRegister handles POST /api/open/users/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "register", err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, registerResponse{
		Message:  "registration successful, check your email to confirm the account",
		ID:       acct.ID.String(),
		Username: acct.Username,
	})
}

// HandleConfirmEmail handles GET /api/open/users/confirm-email?token=
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authService.ConfirmEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		respondWithServiceError(w, r, h.logger, "confirm email", err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, messageResponse{Message: "email confirmed"})
}

// HandleLogin handles POST /api/open/users/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "login", err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, loginResponse{
		Message:   "login successful",
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

// HandleResendConfirmation handles POST /api/open/users/resend-confirmation.
// The response is the same whether or not the email belongs to a pending account.
func (h *AuthHandler) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.authService.ResendConfirmation(r.Context(), req.Email); err != nil {
		respondWithServiceError(w, r, h.logger, "resend confirmation", err)
		return
	}
	respondJSON(w, h.logger, http.StatusAccepted, messageResponse{
		Message: "if the account is awaiting confirmation, a new email has been sent",
	})
}
