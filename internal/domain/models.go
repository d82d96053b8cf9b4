// Package domain defines the persistence models for users, posts and
// comments. These types are mapped with GORM and form the core data layer
// of the blog backend.
package domain

import "time"

// User is a registered account. The password is only ever held as a bcrypt
// hash and is never serialized.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Username: unique, 2 to 50 chars (validated before persistence).
//   - Email: unique, at most 100 chars.
//   - PasswordHash: bcrypt hash of the password.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username"   gorm:"type:varchar(50);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(100);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"column:password;type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Post is an article written by a single author. AuthorID is assigned once
// from the authenticated caller and no update path touches it.
type Post struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null;index"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	AuthorID  uint      `json:"author_id"  gorm:"not null;index:idx_posts_author"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	// Author owns the post. Posts are cascade-deleted with their author.
	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Comment is a reply to a post. It has the same ownership shape as Post.
type Comment struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	PostID    uint      `json:"post_id"    gorm:"not null;index:idx_comments_post,priority:1"`
	AuthorID  uint      `json:"author_id"  gorm:"not null;index:idx_comments_author"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comments_post,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	// Post is the parent article; comments go with it.
	Post *Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	// Author wrote the comment; comments go with the account.
	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }
