// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping for the
// supported dialects (SQLite via a pure-Go driver, MySQL, PostgreSQL) and
// table creation.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-blog-backend/internal/domain"
)

// ErrUnknownDriver is returned by Open for an unsupported dialect name.
var ErrUnknownDriver = errors.New("unknown database driver")

// sqlitePragmas are applied per connection through the DSN, since PRAGMAs
// executed once would only reach one pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Options tune Open.
type Options struct {
	// Tracing installs the OpenTelemetry GORM plugin.
	Tracing bool
	// LogLevel for GORM's own logger; zero keeps GORM's default.
	LogLevel logger.LogLevel
}

// Open connects using the named dialect: "sqlite" (dsn is a file path),
// "mysql" or "postgres".
func Open(driver, dsn string, opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	gcfg := gormConfig(opts)
	switch driver {
	case "sqlite", "":
		db, err = openSQLite(dsn, gcfg)
	case "mysql":
		db, err = gorm.Open(mysql.Open(withMySQLParams(dsn)), gcfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics(), tracing.WithoutQueryVariables())); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}
	return db, nil
}

// openSQLite opens (or creates) a SQLite database with WAL, foreign keys
// and a busy timeout enabled on every connection.
func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if file := sqliteFile(path); file != "" {
		if dir := filepath.Dir(file); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(withPragmas(path)), gcfg)
	if err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// sqliteFile returns the on-disk path of a SQLite DSN, or "" for in-memory
// databases.
func sqliteFile(dsn string) string {
	p := dsn
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimPrefix(p, "file:")
	if p == "" || p == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return p
}

func withPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		name := p[:strings.IndexByte(p, '(')]
		if strings.Contains(dsn, "_pragma="+name) {
			continue
		}
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// withMySQLParams makes sure timestamps scan into time.Time.
func withMySQLParams(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true&charset=utf8mb4"
	}
	return dsn + "?parseTime=true&charset=utf8mb4"
}

func gormConfig(opts Options) *gorm.Config {
	c := &gorm.Config{TranslateError: true}
	if opts.LogLevel != 0 {
		c.Logger = logger.Default.LogMode(opts.LogLevel)
	}
	return c
}

// models lists every persisted type in dependency order.
func models() []any {
	return []any{
		&domain.User{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models()...)
}

// TableStatus reports what EnsureTables did for one table.
type TableStatus struct {
	Table   string
	Created bool
}

// EnsureTables creates the tables that do not exist yet and leaves existing
// ones untouched.
func EnsureTables(db *gorm.DB) ([]TableStatus, error) {
	m := db.Migrator()
	out := make([]TableStatus, 0, len(models()))
	for _, model := range models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return out, err
		}
		st := TableStatus{Table: stmt.Schema.Table}
		if !m.HasTable(model) {
			if err := m.CreateTable(model); err != nil {
				return out, fmt.Errorf("create %s: %w", st.Table, err)
			}
			st.Created = true
		}
		out = append(out, st)
	}
	return out, nil
}
