package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Validation("battery must be between 0 and 100"), http.StatusBadRequest, "battery must be between 0 and 100"},
		{auth.ErrDuplicateEmail, http.StatusBadRequest, "email already in use"},
		{auth.ErrDuplicateUsername, http.StatusBadRequest, "username already taken"},
		{auth.ErrInvalidConfirmation, http.StatusBadRequest, "invalid confirmation token"},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{auth.ErrEmailNotConfirmed, http.StatusUnauthorized, "email not confirmed"},
		{auth.ErrAccountDisabled, http.StatusForbidden, "account disabled"},
		{fmt.Errorf("robot 9: %w", apperr.ErrNotFound), http.StatusNotFound, "not found"},
		{apperr.Notify("resend", errors.New("smtp: 421")), http.StatusInternalServerError, "failed to send email"},
		{apperr.Store("list robots", errors.New("pq: connection refused")), http.StatusInternalServerError, "internal server error"},
		{errors.New("anything else"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		status, msg := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
		assert.Equal(t, tt.msg, msg, "%v", tt.err)
		assert.NotContains(t, msg, "pq:")
	}
}

func TestErrorStatus_ConfirmationNotSent(t *testing.T) {
	err := fmt.Errorf("%w: %w", auth.ErrConfirmationNotSent, apperr.Notify("send", errors.New("down")))
	status, msg := errorStatus(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, msg, "resend-confirmation")
}

func TestParseRobotID(t *testing.T) {
	id, ok := parseRobotID("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		_, ok := parseRobotID(raw)
		assert.False(t, ok, raw)
	}
}
