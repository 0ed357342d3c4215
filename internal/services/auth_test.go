package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"example.com/backstage/services/dairy/internal/notify"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func newAuthFixture(now *time.Time) (*AuthService, *fakeUsers, *fakeCodes, *MockNotifier) {
	users := newFakeUsers()
	codes := newFakeCodes()
	notifier := new(MockNotifier)
	rt := Runtime{Location: time.UTC, Now: func() time.Time { return *now }}
	svc := NewAuthService(users, codes, notifier, 10*time.Minute, rt)
	svc.hashCost = bcrypt.MinCost
	return svc, users, codes, notifier
}

func TestRegisterAndLogin(t *testing.T) {
	now := time.Now()
	svc, _, _, _ := newAuthFixture(&now)

	user, err := svc.Register(context.Background(), CredentialsInput{Email: " Owner@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", user.Email)
	require.NotEqual(t, "secret1", user.PasswordHash)

	_, err = svc.Register(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "another"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(context.Background(), CredentialsInput{Email: "short@example.com", Password: "123"})
	require.ErrorIs(t, err, ErrInvalidInput)

	logged, err := svc.Login(context.Background(), CredentialsInput{Email: "OWNER@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(context.Background(), CredentialsInput{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	svc, _, codes, notifier := newAuthFixture(&now)
	_, err := svc.Register(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "secret1"})
	require.NoError(t, err)

	var sent string
	notifier.On("SendTo", mock.Anything, "owner@example.com", notify.ResetCodeSubject, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.String(3) }).
		Return(nil)

	require.NoError(t, svc.ForgotPassword(context.Background(), "Owner@example.com"))
	match := codePattern.FindStringSubmatch(sent)
	require.Len(t, match, 2)
	code := match[1]

	stored := codes.rows["owner@example.com"]
	require.Equal(t, now.Add(10*time.Minute), stored.ExpiresAt)
	require.NotEqual(t, code, stored.CodeHash)

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: "000000", NewPassword: "fresh-secret"})
	require.ErrorIs(t, err, ErrCodeMismatch)

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: code, NewPassword: "fresh-secret"})
	require.NoError(t, err)
	require.Empty(t, codes.rows)

	_, err = svc.Login(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "fresh-secret"})
	require.NoError(t, err)

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: code, NewPassword: "again-secret"})
	require.ErrorIs(t, err, ErrCodeMissing)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	svc, _, codes, notifier := newAuthFixture(&now)
	_, err := svc.Register(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "secret1"})
	require.NoError(t, err)
	notifier.On("SendTo", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.ForgotPassword(context.Background(), "owner@example.com"))
	now = now.Add(10 * time.Minute)

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: "123456", NewPassword: "fresh-secret"})
	require.ErrorIs(t, err, ErrCodeExpired)
	require.Empty(t, codes.rows)
}

func TestResetPasswordDiscardsCodeAfterRepeatedMisses(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	svc, _, codes, notifier := newAuthFixture(&now)
	_, err := svc.Register(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "secret1"})
	require.NoError(t, err)

	var sent string
	notifier.On("SendTo", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.String(3) }).
		Return(nil)
	require.NoError(t, svc.ForgotPassword(context.Background(), "owner@example.com"))
	code := codePattern.FindStringSubmatch(sent)[1]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 1; i < MaxCodeAttempts; i++ {
		err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: wrong, NewPassword: "fresh-secret"})
		require.ErrorIs(t, err, ErrCodeMismatch)
		require.Equal(t, i, codes.rows["owner@example.com"].Attempts)
	}

	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: wrong, NewPassword: "fresh-secret"})
	require.ErrorIs(t, err, ErrCodeAttempts)
	require.Empty(t, codes.rows)

	// the right code no longer works once discarded
	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "owner@example.com", Code: code, NewPassword: "fresh-secret"})
	require.ErrorIs(t, err, ErrCodeMissing)

	// a new code starts with a clean count
	require.NoError(t, svc.ForgotPassword(context.Background(), "owner@example.com"))
	require.Zero(t, codes.rows["owner@example.com"].Attempts)
}

func TestForgotPasswordErrors(t *testing.T) {
	now := time.Now()
	svc, _, _, notifier := newAuthFixture(&now)

	require.ErrorIs(t, svc.ForgotPassword(context.Background(), "nobody@example.com"), ErrNotFound)
	require.ErrorIs(t, svc.ForgotPassword(context.Background(), " "), ErrInvalidInput)

	_, err := svc.Register(context.Background(), CredentialsInput{Email: "owner@example.com", Password: "secret1"})
	require.NoError(t, err)
	notifier.On("SendTo", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("mail relay down"))

	require.Error(t, svc.ForgotPassword(context.Background(), "owner@example.com"))
}

func TestNewCodeIsSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.NotEqual(t, byte('0'), code[0])
	}
}
