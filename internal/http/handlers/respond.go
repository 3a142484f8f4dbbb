package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/auth"
)

const maxBodyBytes = 1 << 20

// respondJSON writes v with the given status
func respondJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}

// decodeBody reads a JSON request body into dst
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorStatus maps a service error to a status code and a client-safe message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, apperr.Message(err, "invalid request")
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusBadRequest, "email already in use"
	case errors.Is(err, auth.ErrDuplicateUsername):
		return http.StatusBadRequest, "username already taken"
	case errors.Is(err, auth.ErrInvalidConfirmation):
		return http.StatusBadRequest, "invalid confirmation token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return http.StatusUnauthorized, "email not confirmed"
	case errors.Is(err, auth.ErrAccountDisabled):
		return http.StatusForbidden, "account disabled"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrConfirmationNotSent):
		return http.StatusInternalServerError, auth.ErrConfirmationNotSent.Error()
	case errors.Is(err, apperr.ErrNotify):
		return http.StatusInternalServerError, "failed to send email"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondWithServiceError logs err and writes the mapped response
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), op+" failed", "error", err)
	} else {
		logger.DebugContext(r.Context(), op+" rejected", "status", status, "error", err)
	}
	respondWithError(w, status, msg)
}
