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

// UserRepo defines the interface for account repository operations
type UserRepo interface {
	// CreatePending inserts a Pending account together with its first confirmation token hash.
	CreatePending(ctx context.Context, username, email, passwordHash, confirmationHash string) (model.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
	GetByUsername(ctx context.Context, username string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(conn *sql.DB) UserRepo {
	return &userRepo{db: conn}
}

const selectAccount = `
	SELECT id, username, email, hashed_password, confirmed, created_at
	FROM users
`

// CreatePending inserts the account and its confirmation token in one transaction,
// so a registered account always has a way to be confirmed.
func (r *userRepo) CreatePending(ctx context.Context, username, email, passwordHash, confirmationHash string) (model.Account, error) {
	acct := model.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		State:        model.StatePending,
	}

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		// Postgres reports the username index first when both collide.
		taken, err := emailTaken(ctx, tx, email)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateEmail
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (username, email, hashed_password, confirmed)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, username, email, passwordHash, int(model.StatePending)).Scan(&acct.ID, &acct.CreatedAt)
		if err != nil {
			if code, constraint, ok := pqCode(err); ok && code == pqUniqueViolation {
				switch constraint {
				case usersEmailKey:
					return ErrDuplicateEmail
				case usersUsernameKey:
					return ErrDuplicateUsername
				}
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO email_confirmations (token_hash, user_id)
			VALUES ($1, $2)
		`, confirmationHash, acct.ID); err != nil {
			return fmt.Errorf("insert confirmation: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateUsername) {
		// a concurrent registration may have claimed the email after the check
		if taken, checkErr := emailTaken(ctx, r.db, email); checkErr == nil && taken {
			return model.Account{}, ErrDuplicateEmail
		}
	}
	if err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

func emailTaken(ctx context.Context, q db.DBTX, email string) (bool, error) {
	var taken bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&taken); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// GetByID retrieves an account by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return r.getOne(ctx, selectAccount+`WHERE id = $1`, id)
}

// GetByUsername retrieves an account by username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.getOne(ctx, selectAccount+`WHERE username = $1`, username)
}

// GetByEmail retrieves an account by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getOne(ctx, selectAccount+`WHERE email = $1`, email)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg any) (model.Account, error) {
	var acct model.Account
	var state int
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&acct.PasswordHash,
		&state,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, fmt.Errorf("query user: %w", err)
	}
	acct.State = model.ConfirmationState(state)
	return acct, nil
}
