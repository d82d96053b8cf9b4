// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints: the error
// envelope, the mapping from service error kinds to statuses, and small
// success writers.
//
// Example error response:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "forbidden",
//	  "message": "you can only modify your own resources"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/http/middleware"
	"github.com/tbourn/go-blog-backend/internal/services"
	"github.com/tbourn/go-blog-backend/internal/validate"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Offending request field, set on validation failures
	Field string `json:"field,omitempty" example:"email"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"post not found"`
}

// fail aborts the request with a structured error. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failField(c, status, code, "", msg)
}

func failField(c *gin.Context, status int, code, field, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Field:     field,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto its HTTP status:
//
//	ErrInvalidInput       400  (field and localized message when available)
//	ErrUnauthenticated    401
//	ErrForbidden          403
//	ErrNotFound           404
//	ErrConflict           409
//	ErrStorageUnavailable 503
//
// Anything else is a 500 whose detail stays in the logs.
func failErr(c *gin.Context, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		failField(c, http.StatusBadRequest, ErrCodeValidation, verr.Field, localize(c, verr))
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, detail(err, services.ErrInvalidInput))
	case errors.Is(err, services.ErrUnauthenticated):
		middleware.ObserveAuthRejection(middleware.RejectUnauthenticated)
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, detail(err, services.ErrUnauthenticated))
	case errors.Is(err, services.ErrForbidden):
		middleware.ObserveAuthRejection(middleware.RejectForbidden)
		fail(c, http.StatusForbidden, ErrCodeForbidden, "you can only modify your own resources")
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, detail(err, services.ErrNotFound))
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, detail(err, services.ErrConflict))
	case errors.Is(err, services.ErrStorageUnavailable):
		middleware.LoggerFrom(c).Error().Err(err).Msg("storage failure")
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage temporarily unavailable")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// detail returns the specific part of a "<kind>: <detail>" message, or the
// kind itself when err is the bare sentinel.
func detail(err, kind error) string {
	msg, k := err.Error(), kind.Error()
	if len(msg) > len(k)+2 && msg[:len(k)+2] == k+": " {
		return msg[len(k)+2:]
	}
	return msg
}

// requireCaller returns the authenticated caller, or answers 401 and
// returns false.
func requireCaller(c *gin.Context) (*domain.User, bool) {
	u := middleware.CallerFrom(c)
	if u == nil {
		middleware.ObserveAuthRejection(middleware.RejectUnauthenticated)
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return nil, false
	}
	return u, true
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
