package auth

import (
	"errors"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// ErrForbidden is returned when the caller does not own the resource.
var ErrForbidden = errors.New("forbidden: caller does not own the resource")

// AuthorizeMutation allows a write iff caller is present and owns the
// resource. There is no admin override; posts and comments follow the same
// rule.
func AuthorizeMutation(ownerID uint, caller *domain.User) error {
	if caller == nil || caller.ID == 0 || caller.ID != ownerID {
		return ErrForbidden
	}
	return nil
}
