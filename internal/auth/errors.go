package auth

import "errors"

// Session errors
var (
	ErrUnauthenticated = errors.New("missing or malformed authorization header")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionExpired  = errors.New("session expired")
)

// Credential and confirmation errors
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrAccountDisabled     = errors.New("account disabled")
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrDuplicateUsername   = errors.New("username already taken")
	ErrInvalidConfirmation = errors.New("invalid confirmation token")
)
