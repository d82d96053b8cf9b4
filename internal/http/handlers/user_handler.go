// User HTTP handlers.
//
// This file exposes REST endpoints for accounts:
//   - POST   /users/register   (create account, returns a token)
//   - POST   /users/login      (exchange credentials for a token)
//   - GET    /users            (list, paginated)
//   - GET    /users/me         (current caller)
//   - DELETE /users/me         (delete own account)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/utils"
)

// RegisterRequest is the JSON payload for account creation.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"s3cret!!"`
}

// LoginRequest accepts either an email or a username with the password.
type LoginRequest struct {
	Email    string `json:"email,omitempty" example:"alice@example.com"`
	Username string `json:"username,omitempty" example:"alice"`
	Password string `json:"password" example:"s3cret!!"`
}

// AuthResponse carries the account and a freshly issued bearer token.
type AuthResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Pagination carries pagination metadata for the user listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// issue signs a token for u and writes the auth response.
func (h *Handlers) issue(c *gin.Context, status int, u *domain.User) {
	tok, exp, err := h.tokens.Issue(u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, status, AuthResponse{User: u, Token: tok, TokenType: "Bearer", ExpiresAt: exp})
}

// Register godoc
// @ID          registerUser
// @Summary     Register an account
// @Description Creates an account and returns it with a bearer token.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       Accept-Language  header  string  false "Language of validation messages"  example(zh-CN)
// @Param       body             body    handlers.RegisterRequest  true  "Credentials"
//
// @Success     201  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse "Username or email taken"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /users/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	h.issue(c, http.StatusCreated, u)
}

// Login godoc
// @ID          loginUser
// @Summary     Log in
// @Description Exchanges an email or username plus password for a bearer token.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.AuthResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing fields"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid credentials"
// @Router      /users/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key := strings.TrimSpace(req.Email)
	if key == "" {
		key = strings.TrimSpace(req.Username)
	}
	u, err := h.userSvc.Login(c.Request.Context(), key, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	h.issue(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Tags        Users
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListUsersResponse
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.userSvc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListUsersResponse{
		Users: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// Me godoc
// @ID          getMe
// @Summary     Current user
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Router      /users/me [get]
func (h *Handlers) Me(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	ok(c, http.StatusOK, caller)
}

// DeleteMe godoc
// @ID          deleteMe
// @Summary     Delete own account
// @Description Deletes the caller's account with its posts and comments.
// @Tags        Users
// @Security    BearerAuth
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Router      /users/me [delete]
func (h *Handlers) DeleteMe(c *gin.Context) {
	caller, good := requireCaller(c)
	if !good {
		return
	}
	if err := h.userSvc.DeleteAccount(c.Request.Context(), caller, caller.ID); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
