package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/logging"
	"github.com/robonav/server/internal/model"
	"github.com/robonav/server/internal/notify"
)

const (
	confirmPath           = "/api/open/users/confirm-email"
	confirmEmailSubject   = "Confirm your RoboNav account"
	defaultStoreTimeout   = 5 * time.Second
	maxUsernameLength     = 64
	registerNotifyFailMsg = "account created but the confirmation email could not be sent; use resend-confirmation"
)

// ErrConfirmationNotSent marks a registration whose account was stored but
// whose confirmation email failed. It also matches apperr.ErrNotify.
var ErrConfirmationNotSent = errors.New(registerNotifyFailMsg)

// ServiceOptions configures AuthService
type ServiceOptions struct {
	PublicBaseURL string
	StoreTimeout  time.Duration
	Logger        *slog.Logger
}

// AuthService orchestrates registration, confirmation and login
type AuthService struct {
	credentials *CredentialStore
	ledger      *ConfirmationLedger
	jwtService  *JWTService
	notifier    notify.Notifier

	baseURL      string
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	credentials *CredentialStore,
	ledger *ConfirmationLedger,
	jwtService *JWTService,
	notifier notify.Notifier,
	opts ServiceOptions,
) *AuthService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AuthService{
		credentials:  credentials,
		ledger:       ledger,
		jwtService:   jwtService,
		notifier:     notifier,
		baseURL:      strings.TrimRight(opts.PublicBaseURL, "/"),
		storeTimeout: opts.StoreTimeout,
		logger:       opts.Logger,
	}
}

// Session is the result of a successful login
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   model.Account
}

// Register creates a Pending account and emails its confirmation link.
// The account and token are committed before the email is sent; a send
// failure leaves the account Pending and returns ErrConfirmationNotSent.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		return model.Account{}, err
	}

	token, hash, err := s.ledger.Mint()
	if err != nil {
		return model.Account{}, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	acct, err := s.credentials.Register(storeCtx, username, email, password, hash)
	cancel()
	if err != nil {
		return model.Account{}, err
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", acct.ID,
		"email", logging.MaskEmail(acct.Email),
	)

	if err := s.sendConfirmation(ctx, acct, token); err != nil {
		s.logger.ErrorContext(ctx, "confirmation email failed",
			"account_id", acct.ID,
			"email", logging.MaskEmail(acct.Email),
			"error", err,
		)
		return acct, fmt.Errorf("%w: %w", ErrConfirmationNotSent, apperr.Notify("send confirmation", err))
	}
	return acct, nil
}

// ConfirmEmail redeems a confirmation token
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, apperr.Validation("token is required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	accountID, err := s.ledger.Confirm(storeCtx, token)
	if err != nil {
		return uuid.Nil, err
	}

	// The token is spent either way; a Disabled account is not reported as confirmed.
	acct, err := s.credentials.Account(storeCtx, accountID)
	if err != nil {
		s.logger.WarnContext(ctx, "confirmed account not reloaded", "account_id", accountID, "error", err)
	} else if acct.State == model.StateDisabled {
		s.logger.WarnContext(ctx, "confirmation token redeemed for disabled account", "account_id", accountID)
		return uuid.Nil, ErrAccountDisabled
	}

	s.logger.InfoContext(ctx, "email confirmed", "account_id", accountID)
	return accountID, nil
}

// Login verifies credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, apperr.Validation("username and password are required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	acct, err := s.credentials.Verify(storeCtx, username, password)
	cancel()
	if err != nil {
		return Session{}, err
	}

	token, expiresAt, err := s.jwtService.IssueSession(acct)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Account: acct}, nil
}

// ResendConfirmation replaces the outstanding token of a Pending account and
// emails the new link. Unknown and already confirmed emails are a silent no-op.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("email is required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	acct, err := s.credentials.Lookup(storeCtx, email)
	cancel()
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if acct.State != model.StatePending {
		s.logger.DebugContext(ctx, "resend skipped", "account_id", acct.ID, "state", acct.State.String())
		return nil
	}

	storeCtx, cancel = context.WithTimeout(ctx, s.storeTimeout)
	token, err := s.ledger.Issue(storeCtx, acct.ID)
	cancel()
	if err != nil {
		return err
	}

	if err := s.sendConfirmation(ctx, acct, token); err != nil {
		return apperr.Notify("resend confirmation", err)
	}
	s.logger.InfoContext(ctx, "confirmation resent", "account_id", acct.ID)
	return nil
}

// ConfirmationLink builds the URL a user follows to confirm their email
func (s *AuthService) ConfirmationLink(token string) string {
	return s.baseURL + confirmPath + "?token=" + url.QueryEscape(token)
}

func (s *AuthService) sendConfirmation(ctx context.Context, acct model.Account, token string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nConfirm your RoboNav account by opening this link:\n\n%s\n",
		acct.Username, s.ConfirmationLink(token),
	)
	return s.notifier.Send(ctx, acct.Email, confirmEmailSubject, body)
}

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return apperr.Validation("username, email and password are required")
	}
	if len(username) > maxUsernameLength {
		return apperr.Validation("username is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("invalid email address")
	}
	return nil
}
