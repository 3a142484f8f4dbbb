package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robonav/server/internal/apperr"
	"github.com/robonav/server/internal/model"
	"github.com/robonav/server/internal/repo/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *captureNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to, subject, body})
	return nil
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no email sent")
	body := n.sent[len(n.sent)-1].body
	i := strings.Index(body, "http")
	require.GreaterOrEqual(t, i, 0, "no link in body")
	link := strings.Fields(body[i:])[0]
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type serviceFixture struct {
	store    *repotest.Store
	notifier *captureNotifier
	jwt      *JWTService
	svc      *AuthService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	store := repotest.NewStore()
	notifier := &captureNotifier{}
	jwtSvc := NewJWTService("test-secret", time.Hour)
	svc := NewAuthService(
		NewCredentialStore(store.Users(), NewPasswordHasher(4)),
		NewConfirmationLedger(store.Confirmations()),
		jwtSvc,
		notifier,
		ServiceOptions{
			PublicBaseURL: "https://robonav.example.com/",
			StoreTimeout:  time.Second,
			Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)
	return &serviceFixture{store: store, notifier: notifier, jwt: jwtSvc, svc: svc}
}

func TestRegister_CreatesPendingAccountAndSendsLink(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, " alice ", "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, model.StatePending, acct.State)
	assert.NotEqual(t, "pw", acct.PasswordHash)
	assert.Equal(t, 1, f.store.TokenCount(acct.ID))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "alice@example.com", f.notifier.sent[0].to)
	assert.Contains(t, f.notifier.sent[0].body, "https://robonav.example.com/api/open/users/confirm-email?token=")
	assert.NotEmpty(t, f.notifier.lastToken(t))
}

func TestRegister_Validation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cases := []struct{ username, email, password string }{
		{"", "a@example.com", "pw"},
		{"alice", "", "pw"},
		{"alice", "a@example.com", ""},
		{"alice", "not-an-email", "pw"},
		{"alice", "Alice <a@example.com>", "pw"},
		{strings.Repeat("a", 65), "a@example.com", "pw"},
		{"alice", "a@example.com", strings.Repeat("p", 73)},
	}
	for _, c := range cases {
		_, err := f.svc.Register(ctx, c.username, c.email, c.password)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", c)
	}
	assert.Empty(t, f.notifier.sent)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "shared@example.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "bob", "shared@example.com", "pw")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Len(t, f.notifier.sent, 1)
}

func TestRegister_DuplicateEmailWinsOverUsername(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "a@example.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "bob", "shared@example.com", "pw")
	require.NoError(t, err)

	// both the username and the email are taken, by different accounts
	for i := 0; i < 50; i++ {
		_, err = f.svc.Register(ctx, "alice", "shared@example.com", "pw")
		require.ErrorIs(t, err, ErrDuplicateEmail)
		assert.EqualError(t, err, "email already in use")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "a1@example.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice", "a2@example.com", "pw")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.ErrCreateAccount = errors.New("connection reset")

	_, err := f.svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Empty(t, f.notifier.sent)
}

func TestRegister_NotifyFailureKeepsAccountPending(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.err = errors.New("relay down")
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmationNotSent)
	assert.ErrorIs(t, err, apperr.ErrNotify)

	stored, ok := f.store.Account(acct.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatePending, stored.State)

	// Recovery path: resend once the relay is back.
	f.notifier.err = nil
	require.NoError(t, f.svc.ResendConfirmation(ctx, "alice@example.com"))
	_, err = f.svc.ConfirmEmail(ctx, f.notifier.lastToken(t))
	require.NoError(t, err)
}

func TestConfirmEmail_SingleUse(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	token := f.notifier.lastToken(t)

	id, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)

	stored, _ := f.store.Account(acct.ID)
	assert.Equal(t, model.StateConfirmed, stored.State)

	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidConfirmation)
}

func TestConfirmEmail_UnknownAndMissing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.ConfirmEmail(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidConfirmation)

	_, err = f.svc.ConfirmEmail(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConfirmEmail_StoreFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.store.ErrConsume = errors.New("deadlock detected")

	_, err := f.svc.ConfirmEmail(context.Background(), "tok")
	assert.ErrorIs(t, err, apperr.ErrStore)
}

func TestLogin_States(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)

	_, err = f.svc.ConfirmEmail(ctx, f.notifier.lastToken(t))
	require.NoError(t, err)

	sess, err := f.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	claims, err := f.jwt.VerifySession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.AccountID)
	assert.Equal(t, "alice", claims.Username)

	_, err = f.svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	f.store.SetState(acct.ID, model.StateDisabled)
	_, err = f.svc.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConfirmEmail_DoesNotReenableDisabledAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	f.store.SetState(acct.ID, model.StateDisabled)

	token := f.notifier.lastToken(t)
	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	stored, _ := f.store.Account(acct.ID)
	assert.Equal(t, model.StateDisabled, stored.State)

	_, err = f.svc.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidConfirmation)
}

func TestResendConfirmation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acct, err := f.svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	first := f.notifier.lastToken(t)

	require.NoError(t, f.svc.ResendConfirmation(ctx, "alice@example.com"))
	second := f.notifier.lastToken(t)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, f.store.TokenCount(acct.ID))

	_, err = f.svc.ConfirmEmail(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidConfirmation, "replaced token must be dead")

	_, err = f.svc.ConfirmEmail(ctx, second)
	require.NoError(t, err)

	sent := len(f.notifier.sent)
	require.NoError(t, f.svc.ResendConfirmation(ctx, "alice@example.com"))
	require.NoError(t, f.svc.ResendConfirmation(ctx, "ghost@example.com"))
	assert.Len(t, f.notifier.sent, sent, "no mail for confirmed or unknown accounts")

	assert.ErrorIs(t, f.svc.ResendConfirmation(ctx, ""), apperr.ErrValidation)
}
