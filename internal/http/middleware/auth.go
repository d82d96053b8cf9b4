// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller from the Authorization header. Authenticate
// runs on every request and never rejects; it only records who the caller
// is, if anyone. Endpoints that need an identity check CallerFrom
// themselves and answer 401.
package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

const (
	ctxKeyCaller = "caller"
	ctxKeyUserID = "userID"
)

// CallerResolver turns an Authorization header value into a user, or nil.
// *auth.Resolver satisfies it.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, header string) *domain.User
}

// Authenticate stores the resolved caller under the "caller" key and its id,
// in decimal, under "userID" for loggers and the rate limiter.
func Authenticate(r CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h := c.GetHeader("Authorization"); h != "" {
			if u := r.ResolveCaller(c.Request.Context(), h); u != nil {
				c.Set(ctxKeyCaller, u)
				c.Set(ctxKeyUserID, strconv.FormatUint(uint64(u.ID), 10))
			}
		}
		c.Next()
	}
}

// CallerFrom returns the caller set by Authenticate, or nil.
func CallerFrom(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxKeyCaller)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}
