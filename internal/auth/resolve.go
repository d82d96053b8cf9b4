package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// UserLoader loads a user by id. It returns gorm.ErrRecordNotFound (possibly
// wrapped) when no such user exists.
type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

// Resolver maps an Authorization header to a user. It never fails: any
// problem yields a nil user, and it is up to the endpoint to require one.
type Resolver struct {
	Auth  *Authenticator
	Users UserLoader
}

// NewResolver wires an Authenticator to a user source.
func NewResolver(a *Authenticator, users UserLoader) *Resolver {
	return &Resolver{Auth: a, Users: users}
}

// ResolveCaller accepts "Bearer <token>" (scheme is case-insensitive) or a
// bare token. An absent or malformed header, a token that fails Verify, an
// unknown user id or a storage failure all return nil.
func (r *Resolver) ResolveCaller(ctx context.Context, header string) *domain.User {
	tok, ok := ExtractToken(header)
	if !ok {
		return nil
	}
	id, err := r.Auth.Verify(tok)
	if err != nil {
		return nil
	}
	u, err := r.Users.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Uint("user_id", id).Msg("resolve caller: user lookup failed")
		}
		return nil
	}
	return u
}

// ExtractToken pulls the token out of an Authorization header value.
func ExtractToken(header string) (string, bool) {
	h := strings.TrimSpace(header)
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	switch len(parts) {
	case 1:
		if strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[0], true
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[1], true
	default:
		return "", false
	}
}
