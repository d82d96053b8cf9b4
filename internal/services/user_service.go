// Package services: UserService
//
// UserService is the credential store: it registers accounts, looks them up
// by username or email, checks passwords against their bcrypt hashes and
// deletes an account together with everything it owns. Token issuance is
// left to the caller (see auth.Authenticator) so that this type never sees
// the signing secret.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/auth"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/repo"
	"github.com/tbourn/go-blog-backend/internal/validate"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService manages accounts.
type UserService struct {
	DB     *gorm.DB
	Hasher auth.Hasher
}

// NewUserService wires a DB handle and a password hasher.
func NewUserService(db *gorm.DB, h auth.Hasher) *UserService {
	return &UserService{DB: db, Hasher: h}
}

// Register validates the fields, hashes the password and stores the account.
// Username and email are trimmed before storage. The uniqueness pre-check and
// the insert share one transaction; the unique indexes remain the source of
// truth when two registrations race.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	if err := validate.First(
		validate.Username(username),
		validate.Email(email),
		validate.Password(password),
	); err != nil {
		return nil, invalid(err)
	}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", ErrStorageUnavailable, err)
	}

	u := &domain.User{Username: username, Email: email, PasswordHash: hash}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unTaken, emTaken, err := repo.UserTaken(ctx, tx, username, email)
		if err != nil {
			return err
		}
		if unTaken {
			return ErrUsernameTaken
		}
		if emTaken {
			return ErrEmailTaken
		}
		return repo.CreateUser(ctx, tx, u)
	})
	if err != nil {
		return nil, conflict(err)
	}

	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	log.Info().Uint("user_id", u.ID).Msg("user registered")
	return u, nil
}

// FindByUsernameOrEmail returns the account whose username or email equals
// key exactly, or ErrUserNotFound.
func (s *UserService) FindByUsernameOrEmail(ctx context.Context, key string) (*domain.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrUserNotFound
	}
	u, err := repo.FindUserByUsernameOrEmail(ctx, s.DB, key)
	if err != nil {
		return nil, storage(err, ErrUserNotFound)
	}
	return u, nil
}

// VerifyPassword compares candidate against the stored hash in constant time.
func (s *UserService) VerifyPassword(u *domain.User, candidate string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return s.Hasher.Check(candidate, u.PasswordHash)
}

// Login resolves key as a username or email and checks the password. An
// unknown account and a wrong password both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, key, password string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	if strings.TrimSpace(key) == "" {
		return nil, ErrLoginKeyRequired
	}
	if password == "" {
		return nil, invalid(validate.Password(password))
	}

	u, err := s.FindByUsernameOrEmail(ctx, key)
	if errors.Is(err, ErrNotFound) {
		log.Info().Msg("login rejected: unknown account")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.VerifyPassword(u, password) {
		log.Info().Uint("user_id", u.ID).Msg("login rejected: wrong password")
		return nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	log.Info().Uint("user_id", u.ID).Msg("user logged in")
	return u, nil
}

// FindByID loads one account.
func (s *UserService) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	u, err := repo.GetUserByID(ctx, s.DB, id)
	if err != nil {
		return nil, storage(err, ErrUserNotFound)
	}
	return u, nil
}

// List returns a page of accounts and the total count.
func (s *UserService) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, storage(err, ErrNotFound)
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	items, err := repo.ListUsersPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, storage(err, ErrNotFound)
	}
	return items, total, nil
}

// DeleteAccount removes account id and, in the same transaction, its posts,
// the comments it wrote and the comments on its posts. Only the account
// itself may do this.
func (s *UserService) DeleteAccount(ctx context.Context, caller *domain.User, id uint) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "DeleteAccount",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))),
	)
	defer span.End()

	if caller == nil {
		return ErrUnauthenticated
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetUserByID(ctx, tx, id); err != nil {
			return err
		}
		if err := auth.AuthorizeMutation(id, caller); err != nil {
			return err
		}
		return repo.DeleteUserCascade(ctx, tx, id)
	})
	if err != nil {
		return storage(err, ErrUserNotFound)
	}
	log.Info().Uint("user_id", id).Msg("account deleted")
	return nil
}
