package services

import (
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/pkg/errors"
)

// Service errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyClaimed = errors.New("reminder already claimed for this minute")
	ErrUnauthorized   = errors.New("invalid credentials")
	ErrConflict       = errors.New("already exists")
	ErrCodeMissing    = errors.New("one-time code not found, request a new one")
	ErrCodeExpired    = errors.New("one-time code expired, request a new one")
	ErrCodeMismatch   = errors.New("invalid one-time code")
	ErrCodeAttempts   = errors.New("too many wrong codes, request a new one")
)

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// storeError maps repository sentinels onto service errors
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return errors.Wrap(ErrNotFound, msg)
	case errors.Is(err, repositories.ErrDuplicateKey):
		return errors.Wrap(ErrConflict, msg)
	default:
		return errors.Wrap(err, msg)
	}
}
