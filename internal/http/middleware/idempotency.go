// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for resource creation. It
// validates an Idempotency-Key request header, optionally asks a lookup
// whether the authenticated caller already completed a create with that key
// in the same scope, and annotates the request context so downstream code
// can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests (IsReplay)
//   - bypass rate limiting when a replay is served
//
// The replayed resource itself is produced by the service layer, which owns
// the idempotency records.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/utils"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on responses served from a
// previous create.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stashed by
// IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a completed create for this
// caller, scope and key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ScopeFunc names the idempotency scope of a request, e.g. "posts" or
// "posts/7/comments". An empty scope skips the lookup.
type ScopeFunc func(c *gin.Context) string

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Scope derives the scope; defaults to ScopeFromRoute.
	Scope ScopeFunc
}

// IdempotencyLookup reports whether a still-valid record exists for
// (userID, scope, key) at now. Lookup errors do not block the request.
type IdempotencyLookup func(ctx context.Context, userID uint, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header on POST requests,
// stashes it, and marks the request as a replay when lookup finds a record
// for the resolved caller. Anonymous requests are never marked.
//
// An invalid key is answered with 400. Requests without the header, and
// methods other than POST, pass through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	scopeFn := opts.Scope
	if scopeFn == nil {
		scopeFn = ScopeFromRoute
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if u := CallerFrom(c); u != nil {
				if scope := scopeFn(c); scope != "" {
					if exists, _ := lookup(c.Request.Context(), u.ID, scope, key, time.Now().UTC()); exists {
						c.Set(ctxKeyIdemReplay, true)
						c.Set(ctxKeyRateBypass, true)
					}
				}
			}
		}

		c.Next()
	}
}

// ScopeFromRoute maps the matched route onto the scope used by the create
// services: ".../posts" becomes "posts" and ".../posts/:id/comments" becomes
// "posts/<id>/comments" with the id in canonical decimal form. Other routes,
// and comment routes with an unparsable id, have no scope.
func ScopeFromRoute(c *gin.Context) string {
	route := c.FullPath()
	switch {
	case strings.HasSuffix(route, "/posts/:id/comments"):
		id, ok := utils.ParseID(c.Param("id"))
		if !ok {
			return ""
		}
		return "posts/" + strconv.FormatUint(uint64(id), 10) + "/comments"
	case strings.HasSuffix(route, "/posts"):
		return "posts"
	default:
		return ""
	}
}
