// Package services: CommentService
//
// CommentService mirrors PostService for replies: the author is the caller,
// the parent post must exist, and edits or deletes go through the ownership
// guard inside the write transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// CommentScope is the idempotency scope of comment creation on postID.
func CommentScope(postID uint) string {
	return fmt.Sprintf("posts/%d/comments", postID)
}

// CommentService coordinates comment persistence and ownership.
type CommentService struct {
	DB      *gorm.DB
	IdemTTL time.Duration
}

// NewCommentService returns a CommentService with a one-day idempotency window.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{DB: db, IdemTTL: 24 * time.Hour}
}

// Create adds a comment by caller to postID. Validation runs before any
// storage access, so an oversize comment never reaches the database.
func (s *CommentService) Create(ctx context.Context, caller *domain.User, postID uint, content, idemKey string) (comment *domain.Comment, replayed bool, err error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("post.id", int64(postID))),
	)
	defer span.End()

	if caller == nil {
		return nil, false, ErrUnauthenticated
	}
	if err := validate.CommentContent(content); err != nil {
		return nil, false, invalid(err)
	}

	scope := CommentScope(postID)
	idemKey = strings.TrimSpace(idemKey)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if idemKey != "" {
			rec, err := repo.GetIdempotency(ctx, tx, caller.ID, scope, idemKey, time.Now().UTC())
			if err == nil {
				c, err := repo.GetComment(ctx, tx, rec.ResourceID)
				if err != nil {
					return err
				}
				comment, replayed = c, true
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		ok, err := repo.PostExists(ctx, tx, postID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPostNotFound
		}

		c := &domain.Comment{
			Content:  strings.TrimSpace(content),
			PostID:   postID,
			AuthorID: caller.ID,
		}
		if err := repo.CreateComment(ctx, tx, c); err != nil {
			return err
		}
		if idemKey != "" {
			ttl := s.IdemTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			if _, err := repo.CreateIdempotency(ctx, tx, caller.ID, scope, idemKey, c.ID, 201, ttl); err != nil {
				return err
			}
		}
		c.Author = caller
		comment = c
		return nil
	})
	if err != nil {
		return nil, false, storage(err, ErrCommentNotFound)
	}

	span.SetAttributes(
		attribute.Int64("comment.id", int64(comment.ID)),
		attribute.Bool("idempotent.replay", replayed),
	)
	if !replayed {
		log.Info().Uint("comment_id", comment.ID).Uint("post_id", postID).Uint("user_id", caller.ID).Msg("comment created")
	}
	return comment, replayed, nil
}

// ListByPost returns the comments on postID, newest first. A missing post is
// ErrPostNotFound rather than an empty list.
func (s *CommentService) ListByPost(ctx context.Context, postID uint) ([]domain.Comment, error) {
	ok, err := repo.PostExists(ctx, s.DB, postID)
	if err != nil {
		return nil, storage(err, ErrPostNotFound)
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	cs, err := repo.ListCommentsByPost(ctx, s.DB, postID)
	if err != nil {
		return nil, storage(err, ErrPostNotFound)
	}
	return cs, nil
}

// Stats returns the comment count and newest update time on postID, used to
// build the listing's ETag.
func (s *CommentService) Stats(ctx context.Context, postID uint) (int64, *time.Time, error) {
	n, at, err := repo.CommentsStats(ctx, s.DB, postID)
	if err != nil {
		return 0, nil, storage(err, ErrPostNotFound)
	}
	return n, at, nil
}

// Update rewrites a comment the caller owns.
func (s *CommentService) Update(ctx context.Context, caller *domain.User, id uint, content string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("comment.id", int64(id))),
	)
	defer span.End()

	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if err := validate.CommentContent(content); err != nil {
		return nil, invalid(err)
	}

	var out *domain.Comment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetCommentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeMutation(c.AuthorID, caller); err != nil {
			return err
		}
		if err := repo.UpdateComment(ctx, tx, id, caller.ID, strings.TrimSpace(content)); err != nil {
			return err
		}
		out, err = repo.GetComment(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn().Uint("comment_id", id).Uint("user_id", caller.ID).Msg("comment update forbidden")
		}
		return nil, storage(err, ErrCommentNotFound)
	}
	log.Info().Uint("comment_id", id).Uint("user_id", caller.ID).Msg("comment updated")
	return out, nil
}

// Delete removes a comment the caller owns.
func (s *CommentService) Delete(ctx context.Context, caller *domain.User, id uint) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("comment.id", int64(id))),
	)
	defer span.End()

	if caller == nil {
		return ErrUnauthenticated
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetCommentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeMutation(c.AuthorID, caller); err != nil {
			return err
		}
		return repo.DeleteComment(ctx, tx, id, caller.ID)
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn().Uint("comment_id", id).Uint("user_id", caller.ID).Msg("comment delete forbidden")
		}
		return storage(err, ErrCommentNotFound)
	}
	log.Info().Uint("comment_id", id).Uint("user_id", caller.ID).Msg("comment deleted")
	return nil
}
