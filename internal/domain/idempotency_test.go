package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func jsonMarshal(v any) ([]byte, error) { return json.Marshal(v) }

func TestIdempotency_UniquePerUserScopeKey(t *testing.T) {
	db := newDomainDB(t)

	exp := time.Now().UTC().Add(time.Hour)
	first := Idempotency{UserID: 1, Scope: "posts", Key: "k1", ResourceID: 10, Status: 201, ExpiresAt: exp}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}

	dup := Idempotency{UserID: 1, Scope: "posts", Key: "k1", ResourceID: 11, Status: 201, ExpiresAt: exp}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation for same (user, scope, key)")
	}

	// Same key in a different scope or for another user is fine.
	if err := db.Create(&Idempotency{UserID: 1, Scope: "posts/10/comments", Key: "k1", ResourceID: 12, Status: 201, ExpiresAt: exp}).Error; err != nil {
		t.Fatalf("other scope: %v", err)
	}
	if err := db.Create(&Idempotency{UserID: 2, Scope: "posts", Key: "k1", ResourceID: 13, Status: 201, ExpiresAt: exp}).Error; err != nil {
		t.Fatalf("other user: %v", err)
	}

	var got Idempotency
	if err := db.Where("user_id = ? AND scope = ? AND idem_key = ?", 1, "posts", "k1").First(&got).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ResourceID != 10 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected record: %+v", got)
	}
}
