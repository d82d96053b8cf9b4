package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

func TestGetIdempotency_BlankInputs_ReturnNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	ctx := context.Background()

	for _, tc := range []struct {
		user       uint
		scope, key string
	}{
		{0, "posts", "k"},
		{1, "   ", "k"},
		{1, "posts", ""},
	} {
		rec, err := GetIdempotency(ctx, db, tc.user, tc.scope, tc.key, now)
		if rec != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected (nil, ErrNotFound) for %+v, got (%v, %v)", tc, rec, err)
		}
	}
}

func TestCreateAndGetIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, 1, "posts", "k1", 10, 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == 0 || rec.ResourceID != 10 || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, 1, "posts", "k1", time.Now().UTC())
	if err != nil || got.ResourceID != 10 || got.Status != 201 {
		t.Fatalf("GetIdempotency: err=%v got=%+v", err, got)
	}

	// other scope / other user do not see it
	if _, err := GetIdempotency(ctx, db, 1, "posts/10/comments", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other scope: expected ErrNotFound, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, 2, "posts", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user: expected ErrNotFound, got %v", err)
	}
}

func TestCreateIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, 1, "posts", "k1", 10, 201, time.Hour); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, 1, "posts", "k1", 11, 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_ReplacesExpired(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	past := time.Now().UTC().Add(-2 * time.Hour)

	if err := db.Create(&domain.Idempotency{UserID: 1, Scope: "posts", Key: "k1", ResourceID: 5, Status: 201, CreatedAt: past, ExpiresAt: past.Add(time.Hour)}).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, 1, "posts", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should be invisible, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, 1, "posts", "k1", 6, 201, time.Hour)
	if err != nil || rec.ResourceID != 6 {
		t.Fatalf("expected expired record to be replaced: err=%v rec=%+v", err, rec)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	db.Create(&domain.Idempotency{UserID: 1, Scope: "posts", Key: "old", ResourceID: 1, Status: 201, ExpiresAt: now.Add(-time.Minute)})
	db.Create(&domain.Idempotency{UserID: 1, Scope: "posts", Key: "new", ResourceID: 2, Status: 201, ExpiresAt: now.Add(time.Hour)})

	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 remaining, got %d", left)
	}
}
