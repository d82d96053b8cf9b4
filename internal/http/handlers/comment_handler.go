// Comment HTTP handlers.
//
// This file exposes REST endpoints for comments:
//   - GET    /posts/{id}/comments   (list, newest first, ETag support)
//   - POST   /posts/{id}/comments   (create, Idempotency-Key aware)
//   - PUT    /posts/comments/{id}   (update, owner only)
//   - DELETE /posts/comments/{id}   (delete, owner only)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// CommentRequest is the JSON payload for creating or updating a comment.
type CommentRequest struct {
	// Content is 1 to 1000 characters after trimming.
	Content string `json:"content" example:"Nice post!"`
}

// ListCommentsResponse wraps the comments on one post.
type ListCommentsResponse struct {
	PostID   uint             `json:"post_id"`
	Comments []domain.Comment `json:"comments"`
	Count    int              `json:"count"`
}

// commentsETag builds the weak validator for a post's comment listing.
func commentsETag(postID uint, count, ts int64) string {
	return fmt.Sprintf(`W/"comments:%d:%d:%d"`, postID, count, ts)
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments on a post
// @Description Returns the post's comments with their authors, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Comments
// @Produce     json
//
// @Param       id             path    int     true  "Post ID"                      minimum(1)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListCommentsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse "Post not found"
// @Router      /posts/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	postID, good := pathID(c, "id")
	if !good {
		return
	}

	// ETag pre-check (best effort). An empty listing never short-circuits so
	// a missing post still answers 404.
	if count, maxTS, err := h.commentSvc.Stats(ctx, postID); err == nil && count > 0 {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := commentsETag(postID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.commentSvc.ListByPost(ctx, postID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCommentsResponse{PostID: postID, Comments: items, Count: len(items)})
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a post
// @Description Adds a comment by the caller. A repeated Idempotency-Key returns the original comment.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id               path    int     true  "Post ID"  minimum(1)
// @Param       Idempotency-Key  header  string  false "Client key for safe retries"
// @Param       body             body    handlers.CommentRequest  true  "Comment payload"
//
// @Success     201  {object}  domain.Comment
// @Header      201  {string}  Idempotency-Replayed "true when served from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse "Post not found"
// @Router      /posts/{id}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	postID, good := pathID(c, "id")
	if !good {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cm, replayed, err := h.commentSvc.Create(c.Request.Context(), caller, postID, req.Content, idemKey(c))
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, replayed, cm)
}

// UpdateComment godoc
// @ID          updateComment
// @Summary     Update a comment
// @Description Replaces the content of a comment written by the caller.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                      true  "Comment ID"  minimum(1)
// @Param       body  body  handlers.CommentRequest  true  "New content"
//
// @Success     200  {object}  domain.Comment
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Comment not found"
// @Router      /posts/comments/{id} [put]
func (h *Handlers) UpdateComment(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	id, good := pathID(c, "id")
	if !good {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cm, err := h.commentSvc.Update(c.Request.Context(), caller, id, req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cm)
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete a comment
// @Description Deletes a comment written by the caller.
// @Tags        Comments
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Comment ID"  minimum(1)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Comment not found"
// @Router      /posts/comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	id, good := pathID(c, "id")
	if !good {
		return
	}
	if err := h.commentSvc.Delete(c.Request.Context(), caller, id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
