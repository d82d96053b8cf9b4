// Package services: PostService
//
// PostService owns the post lifecycle. Creation takes the author from the
// authenticated caller and never from the payload. Updates and deletes load
// the row inside the same transaction as the write, run the ownership guard
// on it and only then commit; deleting a post removes its comments in that
// transaction too.
//
// Creates accept an optional idempotency key. A repeated key for the same
// caller within the TTL returns the post created the first time.
package services

import (
	"context"
	"errors"
	"math"
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

// Listing defaults.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ScopePosts is the idempotency scope of post creation.
const ScopePosts = "posts"

// PostQuery is a listing request as received from the client.
type PostQuery struct {
	Page     int
	PerPage  int
	Keyword  string
	AuthorID uint
	Sort     string
	Order    string
}

// Normalize applies defaults and bounds: page >= 1, per_page in [1,100]
// with values below 1 meaning the default, sort restricted to known
// columns and order to asc/desc.
func (q PostQuery) Normalize() PostQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Sort = repo.NormalizeSort(q.Sort)
	if strings.ToLower(q.Order) == "asc" {
		q.Order = "asc"
	} else {
		q.Order = "desc"
	}
	return q
}

// PostPage is one page of a listing plus its pagination numbers.
type PostPage struct {
	Items      []domain.Post
	Query      PostQuery
	Total      int64
	TotalPages int
}

// HasNext reports whether another page follows.
func (p PostPage) HasNext() bool { return p.Query.Page < p.TotalPages }

// HasPrev reports whether a page precedes.
func (p PostPage) HasPrev() bool { return p.Query.Page > 1 }

// PostService coordinates post persistence and ownership.
type PostService struct {
	DB      *gorm.DB
	IdemTTL time.Duration
}

// NewPostService returns a PostService with a one-day idempotency window.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{DB: db, IdemTTL: 24 * time.Hour}
}

// Create stores a new post owned by caller. When idemKey is set and a post
// was already created under it, that post is returned with replayed=true.
func (s *PostService) Create(ctx context.Context, caller *domain.User, title, content, idemKey string) (post *domain.Post, replayed bool, err error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	if caller == nil {
		return nil, false, ErrUnauthenticated
	}
	if err := validate.First(validate.PostTitle(title), validate.PostContent(content)); err != nil {
		return nil, false, invalid(err)
	}

	idemKey = strings.TrimSpace(idemKey)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if idemKey != "" {
			rec, err := repo.GetIdempotency(ctx, tx, caller.ID, ScopePosts, idemKey, time.Now().UTC())
			if err == nil {
				p, err := repo.GetPost(ctx, tx, rec.ResourceID)
				if err != nil {
					return err
				}
				post, replayed = p, true
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		p := &domain.Post{
			Title:    strings.TrimSpace(title),
			Content:  strings.TrimSpace(content),
			AuthorID: caller.ID,
		}
		if err := repo.CreatePost(ctx, tx, p); err != nil {
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, caller.ID, ScopePosts, idemKey, p.ID, 201, s.ttl()); err != nil {
				return err
			}
		}
		p.Author = caller
		post = p
		return nil
	})
	if err != nil {
		return nil, false, storage(err, ErrPostNotFound)
	}

	span.SetAttributes(
		attribute.Int64("post.id", int64(post.ID)),
		attribute.Bool("idempotent.replay", replayed),
	)
	if !replayed {
		log.Info().Uint("post_id", post.ID).Uint("user_id", caller.ID).Msg("post created")
	}
	return post, replayed, nil
}

func (s *PostService) ttl() time.Duration {
	if s.IdemTTL <= 0 {
		return 24 * time.Hour
	}
	return s.IdemTTL
}

// Get returns a post with its author.
func (s *PostService) Get(ctx context.Context, id uint) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, id)
	if err != nil {
		return nil, storage(err, ErrPostNotFound)
	}
	return p, nil
}

// GetWithComments returns a post with its author and all its comments,
// newest first.
func (s *PostService) GetWithComments(ctx context.Context, id uint) (*domain.Post, []domain.Comment, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "GetWithComments",
		trace.WithAttributes(attribute.Int64("post.id", int64(id))),
	)
	defer span.End()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	cs, err := repo.ListCommentsByPost(ctx, s.DB, id)
	if err != nil {
		return nil, nil, storage(err, ErrPostNotFound)
	}
	return p, cs, nil
}

// List returns one page of posts matching q after normalization.
func (s *PostService) List(ctx context.Context, q PostQuery) (PostPage, error) {
	q = q.Normalize()

	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", q.Page),
			attribute.Int("per_page", q.PerPage),
			attribute.String("sort", q.Sort),
			attribute.String("order", q.Order),
		),
	)
	defer span.End()

	f := repo.PostFilter{Keyword: q.Keyword, AuthorID: q.AuthorID, Sort: q.Sort, Asc: q.Order == "asc"}
	total, err := repo.CountPosts(ctx, s.DB, f)
	if err != nil {
		return PostPage{}, storage(err, ErrNotFound)
	}
	page := PostPage{
		Items:      []domain.Post{},
		Query:      q,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(q.PerPage))),
	}
	if total == 0 {
		return page, nil
	}
	items, err := repo.ListPostsPage(ctx, s.DB, f, (q.Page-1)*q.PerPage, q.PerPage)
	if err != nil {
		return PostPage{}, storage(err, ErrNotFound)
	}
	page.Items = items
	return page, nil
}

// Update replaces title and content of a post the caller owns.
func (s *PostService) Update(ctx context.Context, caller *domain.User, id uint, title, content string) (*domain.Post, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("post.id", int64(id))),
	)
	defer span.End()

	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if err := validate.First(validate.PostTitle(title), validate.PostContent(content)); err != nil {
		return nil, invalid(err)
	}

	var out *domain.Post
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPostForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeMutation(p.AuthorID, caller); err != nil {
			return err
		}
		if err := repo.UpdatePost(ctx, tx, id, caller.ID, strings.TrimSpace(title), strings.TrimSpace(content)); err != nil {
			return err
		}
		out, err = repo.GetPost(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn().Uint("post_id", id).Uint("user_id", caller.ID).Msg("post update forbidden")
		}
		return nil, storage(err, ErrPostNotFound)
	}
	log.Info().Uint("post_id", id).Uint("user_id", caller.ID).Msg("post updated")
	return out, nil
}

// Delete removes a post the caller owns along with its comments.
func (s *PostService) Delete(ctx context.Context, caller *domain.User, id uint) error {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("post.id", int64(id))),
	)
	defer span.End()

	if caller == nil {
		return ErrUnauthenticated
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPostForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeMutation(p.AuthorID, caller); err != nil {
			return err
		}
		return repo.DeletePost(ctx, tx, id, caller.ID)
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn().Uint("post_id", id).Uint("user_id", caller.ID).Msg("post delete forbidden")
		}
		return storage(err, ErrPostNotFound)
	}
	log.Info().Uint("post_id", id).Uint("user_id", caller.ID).Msg("post deleted")
	return nil
}
