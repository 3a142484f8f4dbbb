package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/repo"
)

// ConfirmationLedger issues and redeems single-use email confirmation tokens.
// Only token hashes reach the store. Tokens do not expire.
type ConfirmationLedger struct {
	confirmations repo.ConfirmationRepo
}

// NewConfirmationLedger creates a new ledger
func NewConfirmationLedger(confirmations repo.ConfirmationRepo) *ConfirmationLedger {
	return &ConfirmationLedger{confirmations: confirmations}
}

// Mint generates a token without persisting it; the caller stores the hash.
func (l *ConfirmationLedger) Mint() (token, hash string, err error) {
	token, hash, err = GenerateConfirmationToken()
	if err != nil {
		return "", "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return token, hash, nil
}

// Issue replaces the account's outstanding tokens with a fresh one and returns it.
func (l *ConfirmationLedger) Issue(ctx context.Context, accountID uuid.UUID) (string, error) {
	token, hash, err := l.Mint()
	if err != nil {
		return "", err
	}
	if err := l.confirmations.Replace(ctx, accountID, hash); err != nil {
		return "", apperr.Store("store confirmation token", err)
	}
	return token, nil
}

// Confirm redeems a token, marking its account Confirmed. A token works once.
func (l *ConfirmationLedger) Confirm(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidConfirmation
	}
	accountID, err := l.confirmations.Consume(ctx, HashConfirmationToken(token))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return uuid.Nil, ErrInvalidConfirmation
		}
		return uuid.Nil, apperr.Store("consume confirmation token", err)
	}
	return accountID, nil
}
