package services

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-blog-backend/internal/auth"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/repo"
)

// newSvcDB opens a fresh in-memory database with foreign keys on and every
// model migrated.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newUserSvc(db *gorm.DB) *UserService {
	return NewUserService(db, auth.NewBcryptHasher(bcrypt.MinCost))
}

func mkUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func mkPost(t *testing.T, db *gorm.DB, author uint, title string) *domain.Post {
	t.Helper()
	p := &domain.Post{Title: title, Content: "body of " + title, AuthorID: author}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func mkComment(t *testing.T, db *gorm.DB, post, author uint, content string, at time.Time) *domain.Comment {
	t.Helper()
	c := &domain.Comment{Content: content, PostID: post, AuthorID: author, CreatedAt: at, UpdatedAt: at}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
