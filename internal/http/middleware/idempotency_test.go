package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// withCaller injects a resolved caller the way Authenticate would.
func withCaller(u *domain.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyCaller, u)
		c.Next()
	}
}

func TestHelpers_GetIdempotencyKey_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("expected GetIdempotencyKey to be absent for non-string value")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

func TestIdempotencyValidator_NoHeader_NoLookupCalled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(context.Context, uint, string, string, time.Time) (bool, error) {
		lookupCalled = true
		return false, nil
	}
	r.Use(withCaller(&domain.User{ID: 1}))
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/posts", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be present when header missing")
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup should not be called when header missing")
	}
}

func TestIdempotencyValidator_IgnoresNonPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 2}, nil))
	r.PUT("/posts/:id", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should only be stashed on POST")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/posts/1", nil)
	req.Header.Set(HeaderIdempotencyKey, "way-too-long")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyValidator_InvalidKey_Length(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 5}, nil))
	r.POST("/posts", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set(HeaderIdempotencyKey, "abcdef")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["code"] != "bad_idempotency_key" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_InvalidKey_Pattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil))
	r.POST("/posts", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc123")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIdempotencyValidator_AnonymousSkipsLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, func(context.Context, uint, string, string, time.Time) (bool, error) {
		t.Fatalf("lookup must not run without a caller")
		return false, nil
	}))
	r.POST("/posts", func(c *gin.Context) {
		if key, ok := GetIdempotencyKey(c); !ok || key != "abc-123" {
			t.Fatalf("expected stashed key abc-123, got %q ok=%v", key, ok)
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc-123")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyValidator_WithLookup_MissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("miss on comments scope", func(t *testing.T) {
		r := gin.New()
		r.Use(withCaller(&domain.User{ID: 3}))
		r.Use(IdempotencyValidator(IdempotencyOptions{}, func(_ context.Context, userID uint, scope, key string, now time.Time) (bool, error) {
			if userID != 3 || key != "key-1" || now.IsZero() {
				t.Fatalf("lookup args: uid=%d key=%q now=%v", userID, key, now)
			}
			if scope != "posts/42/comments" {
				t.Fatalf("scope = %q", scope)
			}
			return false, nil
		}))
		r.POST("/api/v1/posts/:id/comments", func(c *gin.Context) {
			if IsReplay(c) || IsRateBypass(c) {
				t.Fatalf("expected no replay/bypass on miss")
			}
			c.Status(http.StatusCreated)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/42/comments", nil)
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("miss: expected 201, got %d", w.Code)
		}
	})

	t.Run("hit on posts scope sets replay and bypass", func(t *testing.T) {
		r := gin.New()
		r.Use(withCaller(&domain.User{ID: 9}))
		r.Use(IdempotencyValidator(IdempotencyOptions{}, func(_ context.Context, userID uint, scope, key string, _ time.Time) (bool, error) {
			if userID != 9 || scope != "posts" || key != "k-9" {
				t.Fatalf("unexpected lookup: %d %q %q", userID, scope, key)
			}
			return true, nil
		}))
		r.POST("/api/v1/posts", func(c *gin.Context) {
			if !IsReplay(c) || !IsRateBypass(c) {
				t.Fatalf("expected replay and bypass on hit")
			}
			c.Status(http.StatusCreated)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-9")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("hit: expected 201, got %d", w.Code)
		}
	})
}

func TestScopeFromRoute_UnknownRouteHasNoScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got string
	r.POST("/api/v1/users/register", func(c *gin.Context) {
		got = ScopeFromRoute(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/users/register", nil))
	if got != "" {
		t.Fatalf("expected empty scope, got %q", got)
	}
}

func TestScopeFromRoute_CanonicalPostID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]string{
		"/api/v1/posts/42/comments":  "posts/42/comments",
		"/api/v1/posts/007/comments": "posts/7/comments",
		"/api/v1/posts/0/comments":   "",
		"/api/v1/posts/abc/comments": "",
		"/api/v1/posts":              "posts",
	}
	for path, want := range cases {
		r := gin.New()
		var got string
		h := func(c *gin.Context) {
			got = ScopeFromRoute(c)
			c.Status(http.StatusOK)
		}
		r.POST("/api/v1/posts", h)
		r.POST("/api/v1/posts/:id/comments", h)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
		if got != want {
			t.Fatalf("%s: scope=%q want %q", path, got, want)
		}
	}
}

func TestIdempotencyValidator_ZeroPaddedIDStillBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withCaller(&domain.User{ID: 5}))
	r.Use(IdempotencyValidator(IdempotencyOptions{}, func(_ context.Context, _ uint, scope, _ string, _ time.Time) (bool, error) {
		return scope == "posts/7/comments", nil
	}))
	r.POST("/api/v1/posts/:id/comments", func(c *gin.Context) {
		if !IsReplay(c) || !IsRateBypass(c) {
			t.Fatalf("expected replay and bypass for a zero-padded id")
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/007/comments", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-7")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}
