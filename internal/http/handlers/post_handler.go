// Post HTTP handlers.
//
// This file exposes REST endpoints for posts:
//   - GET    /posts        (list, paginated, filtered)
//   - POST   /posts        (create, Idempotency-Key aware)
//   - GET    /posts/{id}   (detail with comments)
//   - PUT    /posts/{id}   (update, owner only)
//   - DELETE /posts/{id}   (delete, owner only)
//
// Handlers are transport-thin: they parse input, check that a caller is
// present where one is required, call application services and translate
// results into HTTP responses. Ownership is decided by the services.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/http/middleware"
	"github.com/tbourn/go-blog-backend/internal/services"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService defines account operations consumed by HTTP handlers.
type UserService interface {
	// Register creates an account from validated credentials.
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	// Login checks credentials; key is a username or an email.
	Login(ctx context.Context, key, password string) (*domain.User, error)
	// List returns a page of accounts and the total count.
	List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	// DeleteAccount removes account id and everything it owns.
	DeleteAccount(ctx context.Context, caller *domain.User, id uint) error
}

// PostService defines post lifecycle operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PostService interface {
	Create(ctx context.Context, caller *domain.User, title, content, idemKey string) (*domain.Post, bool, error)
	GetWithComments(ctx context.Context, id uint) (*domain.Post, []domain.Comment, error)
	List(ctx context.Context, q services.PostQuery) (services.PostPage, error)
	Update(ctx context.Context, caller *domain.User, id uint, title, content string) (*domain.Post, error)
	Delete(ctx context.Context, caller *domain.User, id uint) error
}

// CommentService defines comment lifecycle operations.
type CommentService interface {
	Create(ctx context.Context, caller *domain.User, postID uint, content, idemKey string) (*domain.Comment, bool, error)
	ListByPost(ctx context.Context, postID uint) ([]domain.Comment, error)
	// Stats returns the comment count and latest update time for ETags.
	Stats(ctx context.Context, postID uint) (int64, *time.Time, error)
	Update(ctx context.Context, caller *domain.User, id uint, content string) (*domain.Comment, error)
	Delete(ctx context.Context, caller *domain.User, id uint) error
}

// TokenIssuer signs access tokens. *auth.Authenticator satisfies it.
type TokenIssuer interface {
	Issue(userID uint) (token string, expiresAt time.Time, err error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for users, posts and comments.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	userSvc    UserService
	postSvc    PostService
	commentSvc CommentService
	tokens     TokenIssuer
}

// New constructs and returns a Handlers instance bound to the given services.
func New(userSvc UserService, postSvc PostService, commentSvc CommentService, tokens TokenIssuer) *Handlers {
	return &Handlers{userSvc: userSvc, postSvc: postSvc, commentSvc: commentSvc, tokens: tokens}
}

//
// DTOs
//

// PostRequest is the JSON payload for creating or updating a post.
type PostRequest struct {
	Title   string `json:"title" example:"Hello world"`
	Content string `json:"content" example:"First post."`
}

// PostPagination carries pagination metadata for the post listing.
type PostPagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// PostFilters echoes the effective listing filters.
type PostFilters struct {
	Keyword  string `json:"keyword,omitempty"`
	AuthorID uint   `json:"author_id,omitempty"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
}

// ListPostsResponse wraps a page of posts.
type ListPostsResponse struct {
	Posts      []domain.Post  `json:"posts"`
	Pagination PostPagination `json:"pagination"`
	Filters    PostFilters    `json:"filters"`
}

// PostDetailResponse is a post with its comments, newest first.
type PostDetailResponse struct {
	Post          *domain.Post     `json:"post"`
	Comments      []domain.Comment `json:"comments"`
	CommentsCount int              `json:"comments_count"`
}

//
// Helpers
//

// pathID parses the named path parameter as a positive id, answering 400
// when it is not one.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, good := utils.ParseID(c.Param(name))
	if !good {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// idemKey returns the validated Idempotency-Key, or "".
func idemKey(c *gin.Context) string {
	k, _ := middleware.GetIdempotencyKey(c)
	return k
}

// created answers 201, flagging replays of an earlier create.
func created(c *gin.Context, replayed bool, body any) {
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		middleware.LoggerFrom(c).Debug().
			Bool("prechecked", middleware.IsReplay(c)).
			Msg("idempotent replay")
	}
	ok(c, http.StatusCreated, body)
}

//
// Handlers
//

// ListPosts godoc
// @ID          listPosts
// @Summary     List posts (paginated)
// @Description Returns a page of posts with their authors. Filters by keyword (title or content) and author.
// @Tags        Posts
// @Produce     json
//
// @Param       page       query  int     false "Page number"           minimum(1) default(1)
// @Param       per_page   query  int     false "Items per page"        minimum(1) maximum(100) default(10)
// @Param       keyword    query  string  false "Substring of title or content"
// @Param       author_id  query  int     false "Only posts by this author"
// @Param       sort       query  string  false "Sort column"           Enums(created_at, updated_at, title) default(created_at)
// @Param       order      query  string  false "Sort order"            Enums(asc, desc) default(desc)
//
// @Success     200  {object}  handlers.ListPostsResponse
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	q := services.PostQuery{
		Page:    utils.AtoiDefault(c.Query("page"), 1),
		PerPage: utils.AtoiDefault(c.Query("per_page"), services.DefaultPerPage),
		Keyword: c.Query("keyword"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
	}
	if raw := c.Query("author_id"); raw != "" {
		id, good := utils.ParseID(raw)
		if !good {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "author_id must be a positive integer")
			return
		}
		q.AuthorID = id
	}

	pg, err := h.postSvc.List(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{
		Posts: pg.Items,
		Pagination: PostPagination{
			Page:       pg.Query.Page,
			PerPage:    pg.Query.PerPage,
			Total:      pg.Total,
			TotalPages: pg.TotalPages,
			HasNext:    pg.HasNext(),
			HasPrev:    pg.HasPrev(),
		},
		Filters: PostFilters{
			Keyword:  pg.Query.Keyword,
			AuthorID: pg.Query.AuthorID,
			Sort:     pg.Query.Sort,
			Order:    pg.Query.Order,
		},
	})
}

// CreatePost godoc
// @ID          createPost
// @Summary     Create a post
// @Description Creates a post authored by the caller. A repeated Idempotency-Key returns the original post.
// @Tags        Posts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Client key for safe retries"
// @Param       body             body    handlers.PostRequest  true  "Post payload"
//
// @Success     201  {object}  domain.Post
// @Header      201  {string}  Idempotency-Replayed "true when served from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /posts [post]
func (h *Handlers) CreatePost(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, replayed, err := h.postSvc.Create(c.Request.Context(), caller, req.Title, req.Content, idemKey(c))
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, replayed, p)
}

// GetPost godoc
// @ID          getPost
// @Summary     Get a post
// @Description Returns a post with its author and its comments, newest first.
// @Tags        Posts
// @Produce     json
//
// @Param       id  path  int  true  "Post ID"  minimum(1)
//
// @Success     200  {object}  handlers.PostDetailResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse "Post not found"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	p, comments, err := h.postSvc.GetWithComments(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, PostDetailResponse{Post: p, Comments: comments, CommentsCount: len(comments)})
}

// UpdatePost godoc
// @ID          updatePost
// @Summary     Update a post
// @Description Replaces title and content of a post owned by the caller.
// @Tags        Posts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                   true  "Post ID"  minimum(1)
// @Param       body  body  handlers.PostRequest  true  "New title and content"
//
// @Success     200  {object}  domain.Post
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Post not found"
// @Router      /posts/{id} [put]
func (h *Handlers) UpdatePost(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	id, good := pathID(c, "id")
	if !good {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.postSvc.Update(c.Request.Context(), caller, id, req.Title, req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePost godoc
// @ID          deletePost
// @Summary     Delete a post
// @Description Deletes a post owned by the caller together with its comments.
// @Tags        Posts
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Post ID"  minimum(1)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Post not found"
// @Router      /posts/{id} [delete]
func (h *Handlers) DeletePost(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	id, good := pathID(c, "id")
	if !good {
		return
	}
	if err := h.postSvc.Delete(c.Request.Context(), caller, id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
