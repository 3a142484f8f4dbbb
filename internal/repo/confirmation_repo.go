package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/db"
	"github.com/robonav/server/internal/model"
)

// ConfirmationRepo stores single-use email confirmation tokens (as hashes)
type ConfirmationRepo interface {
	// Replace drops every outstanding token of the account and stores a new one.
	Replace(ctx context.Context, accountID uuid.UUID, tokenHash string) error
	// Consume deletes the token and confirms its account atomically.
	// Returns ErrNotFound if the token is unknown or already consumed.
	Consume(ctx context.Context, tokenHash string) (uuid.UUID, error)
}

type confirmationRepo struct {
	db *sql.DB
}

// NewConfirmationRepo creates a new ConfirmationRepo instance
func NewConfirmationRepo(conn *sql.DB) ConfirmationRepo {
	return &confirmationRepo{db: conn}
}

// Replace serializes on the account with an advisory lock so concurrent resends
// leave exactly one live token.
func (r *confirmationRepo) Replace(ctx context.Context, accountID uuid.UUID, tokenHash string) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1))`, accountID.String()); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM email_confirmations WHERE user_id = $1`, accountID); err != nil {
			return fmt.Errorf("delete confirmations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO email_confirmations (token_hash, user_id)
			VALUES ($1, $2)
		`, tokenHash, accountID); err != nil {
			return fmt.Errorf("insert confirmation: %w", err)
		}
		return nil
	})
}

// Consume uses DELETE ... RETURNING so two concurrent confirmations of the same
// token cannot both succeed. A Disabled account stays Disabled; its token is still spent.
func (r *confirmationRepo) Consume(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		err := tx.QueryRowContext(ctx, `
			DELETE FROM email_confirmations
			WHERE token_hash = $1
			RETURNING user_id
		`, tokenHash).Scan(&accountID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("consume confirmation: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET confirmed = $2
			WHERE id = $1 AND confirmed = $3
		`, accountID, int(model.StateConfirmed), int(model.StatePending)); err != nil {
			return fmt.Errorf("confirm user: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return accountID, nil
}
