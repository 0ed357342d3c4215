package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/notify"
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// MaxCodeAttempts is the number of wrong codes after which a one-time code is
// discarded
const MaxCodeAttempts = 5

// CredentialsInput is an email and password pair
type CredentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ResetPasswordInput completes a password reset
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// AuthService manages owner accounts and password reset codes
type AuthService struct {
	users    UserStore
	codes    CodeStore
	notifier notify.Notifier
	codeTTL  time.Duration
	hashCost int
	rt       Runtime
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, codes CodeStore, notifier notify.Notifier, codeTTL time.Duration, rt Runtime) *AuthService {
	return &AuthService{
		users:    users,
		codes:    codes,
		notifier: notifier,
		codeTTL:  codeTTL,
		hashCost: bcrypt.DefaultCost,
		rt:       rt,
	}
}

// Register creates an account
func (s *AuthService) Register(ctx context.Context, input CredentialsInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validate.Struct(input); err != nil {
		return nil, invalidf("%s", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{Email: input.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err, "user already exists")
	}

	log.Info().Uint("owner_id", user.ID).Msg("User registered")
	return user, nil
}

// Login checks credentials and returns the account
func (s *AuthService) Login(ctx context.Context, input CredentialsInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, invalidf("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// ForgotPassword issues a one-time code for an account and emails it
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalidf("email is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return storeError(err, "user not found")
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash one-time code")
	}

	now := s.rt.now()
	if err := s.codes.Put(ctx, &models.OneTimeCode{
		Target:    email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}); err != nil {
		return errors.Wrap(err, "failed to store one-time code")
	}

	if err := s.notifier.SendTo(ctx, email, notify.ResetCodeSubject, notify.BuildResetCodeEmail(code, s.codeTTL)); err != nil {
		return errors.Wrap(err, "failed to send one-time code")
	}
	return nil
}

// ResetPassword replaces the password when the code is valid and unexpired
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	input.Email = normalizeEmail(input.Email)
	input.Code = strings.TrimSpace(input.Code)
	input.NewPassword = strings.TrimSpace(input.NewPassword)
	if err := validate.Struct(input); err != nil {
		return invalidf("%s", err.Error())
	}

	stored, err := s.codes.Get(ctx, input.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrCodeMissing
	}
	if err != nil {
		return errors.Wrap(err, "failed to load one-time code")
	}

	if stored.Expired(s.rt.now()) {
		if err := s.codes.Delete(ctx, input.Email); err != nil {
			log.Warn().Err(err).Msg("Failed to delete expired one-time code")
		}
		return ErrCodeExpired
	}

	if stored.Attempts >= MaxCodeAttempts {
		return s.burnCode(ctx, input.Email, stored.Attempts)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(input.Code)); err != nil {
		return s.rejectCode(ctx, input.Email)
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return storeError(err, "user not found")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.hashCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return storeError(err, "failed to update password")
	}

	if err := s.codes.Delete(ctx, input.Email); err != nil {
		return errors.Wrap(err, "failed to delete one-time code")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newCode returns a random six-digit code
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(err, "failed to generate one-time code")
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// rejectCode counts a wrong code and burns the code once it has been missed
// MaxCodeAttempts times
func (s *AuthService) rejectCode(ctx context.Context, email string) error {
	attempts, err := s.codes.RecordMiss(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrCodeMissing
	}
	if err != nil {
		return errors.Wrap(err, "failed to record one-time code attempt")
	}
	if attempts < MaxCodeAttempts {
		return ErrCodeMismatch
	}
	return s.burnCode(ctx, email, attempts)
}

func (s *AuthService) burnCode(ctx context.Context, email string, attempts int) error {
	if err := s.codes.Delete(ctx, email); err != nil {
		return errors.Wrap(err, "failed to delete one-time code")
	}
	log.Warn().Str("email", email).Int("attempts", attempts).Msg("One-time code discarded after repeated wrong codes")
	return ErrCodeAttempts
}
