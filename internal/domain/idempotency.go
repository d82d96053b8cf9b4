package domain

import "time"

// Idempotency records the resource produced by a create request, keyed by
// (user_id, scope, key). A retry with the same key inside the TTL returns the
// stored resource instead of creating a second one.
//
// Scope names the collection the key applies to, e.g. "posts" or
// "posts/42/comments", so one key can be reused across collections.
type Idempotency struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     uint      `gorm:"not null;uniqueIndex:ux_idem_user_scope_key,priority:1"`
	Scope      string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_user_scope_key,priority:2"`
	Key        string    `gorm:"column:idem_key;type:varchar(200);not null;uniqueIndex:ux_idem_user_scope_key,priority:3"`
	ResourceID uint      `gorm:"not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
