package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/model"
	"github.com/robonav/server/internal/repo"
)

// CredentialStore owns password hashes and account confirmation state
type CredentialStore struct {
	users  repo.UserRepo
	hasher *PasswordHasher
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(users repo.UserRepo, hasher *PasswordHasher) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher}
}

// Register stores a Pending account and its first confirmation token hash.
func (c *CredentialStore) Register(ctx context.Context, username, email, password, confirmationHash string) (model.Account, error) {
	hash, err := c.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, errPasswordTooLong) {
			return model.Account{}, apperr.Validation(err.Error())
		}
		return model.Account{}, err
	}

	acct, err := c.users.CreatePending(ctx, username, email, hash, confirmationHash)
	switch {
	case errors.Is(err, repo.ErrDuplicateEmail):
		return model.Account{}, ErrDuplicateEmail
	case errors.Is(err, repo.ErrDuplicateUsername):
		return model.Account{}, ErrDuplicateUsername
	case err != nil:
		return model.Account{}, apperr.Store("create account", err)
	}
	return acct, nil
}

// Verify checks a username/password pair. Unknown usernames and wrong passwords
// both yield ErrInvalidCredentials. Disabled and Pending accounts are refused
// before the password is checked.
func (c *CredentialStore) Verify(ctx context.Context, username, password string) (model.Account, error) {
	acct, err := c.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.hasher.Burn(password)
			return model.Account{}, ErrInvalidCredentials
		}
		return model.Account{}, apperr.Store("load account", err)
	}

	switch acct.State {
	case model.StateDisabled:
		return model.Account{}, ErrAccountDisabled
	case model.StatePending:
		return model.Account{}, ErrEmailNotConfirmed
	case model.StateConfirmed:
	default:
		return model.Account{}, ErrInvalidCredentials
	}

	if !c.hasher.Matches(acct.PasswordHash, password) {
		return model.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Account returns the account with the given id
func (c *CredentialStore) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	acct, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, apperr.ErrNotFound
		}
		return model.Account{}, apperr.Store("load account", err)
	}
	return acct, nil
}

// Lookup returns the account registered under email
func (c *CredentialStore) Lookup(ctx context.Context, email string) (model.Account, error) {
	acct, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, apperr.ErrNotFound
		}
		return model.Account{}, apperr.Store("load account", err)
	}
	return acct, nil
}
