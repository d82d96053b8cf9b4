// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// Ownership is enforced by the service layer; the write helpers here are
// additionally scoped by author_id so a mismatched owner cannot slip through
// even if a caller forgets the check. A scoped write that touches no row
// returns ErrNotFound.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// Sort keys accepted by ListPostsPage. Anything else falls back to SortCreatedAt.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
)

// PostFilter narrows and orders a post listing.
type PostFilter struct {
	// Keyword matches posts whose title or content contains it.
	Keyword string
	// AuthorID restricts to one author when non-zero.
	AuthorID uint
	// Sort is one of SortCreatedAt, SortUpdatedAt, SortTitle.
	Sort string
	// Asc orders ascending; the default is descending.
	Asc bool
}

// NormalizeSort maps an arbitrary sort key onto an allowed column.
func NormalizeSort(s string) string {
	switch s {
	case SortCreatedAt, SortUpdatedAt, SortTitle:
		return s
	default:
		return SortCreatedAt
	}
}

// CreatePost inserts p. AuthorID must already be set from the caller.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// GetPost fetches a post with its author.
func GetPost(ctx context.Context, db *gorm.DB, id uint) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Preload("Author").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPostForUpdate loads a post row and locks it for the rest of the
// transaction on dialects that support SELECT ... FOR UPDATE.
func GetPostForUpdate(ctx context.Context, db *gorm.DB, id uint) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PostExists reports whether a post with id exists.
func PostExists(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func applyPostFilter(q *gorm.DB, f PostFilter) *gorm.DB {
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + kw + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	return q
}

// CountPosts returns the number of posts matching f.
func CountPosts(ctx context.Context, db *gorm.DB, f PostFilter) (int64, error) {
	var total int64
	err := applyPostFilter(db.WithContext(ctx).Model(&domain.Post{}), f).Count(&total).Error
	return total, err
}

// ListPostsPage returns a page of posts matching f, with authors loaded.
// Ties on the sort column are broken by id in the same direction.
func ListPostsPage(ctx context.Context, db *gorm.DB, f PostFilter, offset, limit int) ([]domain.Post, error) {
	col := NormalizeSort(f.Sort)
	desc := !f.Asc

	var out []domain.Post
	err := applyPostFilter(db.WithContext(ctx).Model(&domain.Post{}), f).
		Preload("Author").
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdatePost rewrites title and content of a post owned by authorID.
// author_id itself is never written.
func UpdatePost(ctx context.Context, db *gorm.DB, id, authorID uint, title, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(map[string]any{"title": title, "content": content})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePost removes a post owned by authorID and all of its comments.
// Run it inside a transaction; it does not open one.
func DeletePost(ctx context.Context, db *gorm.DB, id, authorID uint) error {
	tx := db.WithContext(ctx)
	owned := tx.Model(&domain.Post{}).Select("id").Where("id = ? AND author_id = ?", id, authorID)
	if err := tx.Where("post_id IN (?)", owned).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ? AND author_id = ?", id, authorID).Delete(&domain.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
