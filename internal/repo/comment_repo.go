// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Comment
// model. Comments share the ownership shape of posts: writes are scoped by
// author_id and report ErrNotFound when nothing matched.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// CreateComment inserts c. PostID and AuthorID must already be set.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

// GetComment fetches a comment with its author.
func GetComment(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Preload("Author").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommentForUpdate loads and, where supported, row-locks a comment.
func GetCommentForUpdate(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCommentsByPost returns every comment on a post, newest first, with
// authors loaded.
func ListCommentsByPost(ctx context.Context, db *gorm.DB, postID uint) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// UpdateComment rewrites the content of a comment owned by authorID.
func UpdateComment(ctx context.Context, db *gorm.DB, id, authorID uint, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteComment removes a comment owned by authorID.
func DeleteComment(ctx context.Context, db *gorm.DB, id, authorID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&domain.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
