// Package services holds the business logic for accounts, posts and
// comments. This file centralizes the error kinds that service methods
// return, so that handlers can map them to HTTP results consistently.
//
// Every error returned by a service matches exactly one of the top-level
// kinds below via errors.Is. The more specific values wrap a kind and carry
// a precise message. Validation failures additionally wrap a
// *validate.Error that names the offending field.
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/auth"
	"github.com/tbourn/go-blog-backend/internal/repo"
)

// Error kinds.
var (
	// ErrInvalidInput is a field-level, user-fixable rejection.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means a unique username or email is already taken.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated means no valid caller identity was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is known but does not own the resource.
	ErrForbidden = auth.ErrForbidden

	// ErrNotFound means the addressed resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable wraps persistence failures other than missing rows
	// and unique violations. The write it interrupted has been rolled back.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Specific errors.
var (
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrPostNotFound       = fmt.Errorf("%w: post not found", ErrNotFound)
	ErrCommentNotFound    = fmt.Errorf("%w: comment not found", ErrNotFound)
	ErrLoginKeyRequired   = fmt.Errorf("%w: email or username is required", ErrInvalidInput)
)

// invalid tags a validator rejection as ErrInvalidInput while keeping the
// *validate.Error reachable through errors.As.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// storage classifies a persistence error. Missing rows become notFound,
// already-classified errors pass through, anything else is
// ErrStorageUnavailable.
func storage(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case isKind(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}

func isKind(err error) bool {
	for _, k := range []error{ErrInvalidInput, ErrConflict, ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrStorageUnavailable} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// conflict maps a unique violation from a racing insert onto ErrConflict.
func conflict(err error) error {
	if errors.Is(err, repo.ErrDuplicate) || repo.IsUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already exists", ErrConflict)
	}
	return storage(err, ErrNotFound)
}
