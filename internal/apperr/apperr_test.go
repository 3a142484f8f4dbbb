package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation_IsAndMessage(t *testing.T) {
	err := Validation("username is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "username is required", Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("other"), "fallback"))
}

func TestStore_WrapsBoth(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store("list robots", cause)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list robots")
	assert.NoError(t, Store("noop", nil))
}

func TestNotify_WrapsBoth(t *testing.T) {
	cause := errors.New("smtp down")
	err := Notify("send confirmation", cause)
	assert.ErrorIs(t, err, ErrNotify)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStore)
	assert.NoError(t, Notify("noop", nil))
}
