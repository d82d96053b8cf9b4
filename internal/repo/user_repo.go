// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a transaction. They hold no business rules: validation, hashing
// and ownership decisions live in the service layer.
//
// Error semantics:
//   - Missing rows surface as gorm.ErrRecordNotFound (ErrNotFound).
//   - Unique index violations on insert surface as ErrDuplicate.
//   - Other DB errors are returned as-is.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// CreateUser inserts u and fills its ID and timestamps.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByID fetches a user by primary key.
func GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByUsernameOrEmail looks key up as a username first, then as an
// email. Both comparisons are exact.
func FindUserByUsernameOrEmail(ctx context.Context, db *gorm.DB, key string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("username = ?", key).
		First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	err = db.WithContext(ctx).
		Where("email = ?", key).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserTaken reports which of username and email already belong to a user.
func UserTaken(ctx context.Context, db *gorm.DB, username, email string) (usernameTaken, emailTaken bool, err error) {
	var n int64
	if err = db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, false, err
	}
	usernameTaken = n > 0
	if err = db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, false, err
	}
	emailTaken = n > 0
	return usernameTaken, emailTaken, nil
}

// CountUsers returns the total number of users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}

// ListUsersPage returns a page of users, newest first.
func ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteUserCascade removes a user together with everything it owns:
// comments it wrote, comments on its posts, its posts and idempotency
// records. Run it inside a transaction; it does not open one.
func DeleteUserCascade(ctx context.Context, db *gorm.DB, id uint) error {
	tx := db.WithContext(ctx)
	ownPosts := tx.Model(&domain.Post{}).Select("id").Where("author_id = ?", id)

	if err := tx.Where("author_id = ? OR post_id IN (?)", id, ownPosts).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("author_id = ?", id).Delete(&domain.Post{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&domain.Idempotency{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
