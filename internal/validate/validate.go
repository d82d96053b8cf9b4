// Package validate holds the stateless field checks applied to request
// payloads before anything touches storage.
//
// Every checker trims leading and trailing whitespace (except Password)
// before measuring, and lengths are counted in runes. No other normalization
// is applied: case, inner whitespace and Unicode forms are left untouched.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalid is matched by every *Error returned from this package.
var ErrInvalid = errors.New("invalid input")

// Rejection codes. Handlers use them as message keys for localization.
const (
	CodeRequired = "required"
	CodeTooShort = "too_short"
	CodeTooLong  = "too_long"
	CodeCharset  = "charset"
	CodeFormat   = "format"
)

// Field names reported in rejections.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldTitle    = "title"
	FieldContent  = "content"
)

// Limits.
const (
	UsernameMin       = 2
	UsernameMax       = 50
	EmailMax          = 100
	PasswordMin       = 6
	PasswordMax       = 128
	TitleMax          = 200
	CommentContentMax = 1000
)

var (
	// Word characters in the Unicode sense (letters, digits of any script,
	// underscore) plus the CJK block.
	usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_\x{4e00}-\x{9fff}]+$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Error is a field-level rejection with a stable code and an English message.
type Error struct {
	Field   string
	Code    string
	Limit   int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports ErrInvalid so callers can branch without a type assertion.
func (e *Error) Is(target error) bool { return target == ErrInvalid }

func reject(field, code string, limit int, format string, args ...any) *Error {
	return &Error{Field: field, Code: code, Limit: limit, Message: fmt.Sprintf(format, args...)}
}

// Username accepts 2..50 Unicode word characters or CJK ideographs.
func Username(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return reject(FieldUsername, CodeRequired, 0, "username is required")
	}
	n := utf8.RuneCountInString(s)
	if n < UsernameMin {
		return reject(FieldUsername, CodeTooShort, UsernameMin, "username must be at least %d characters", UsernameMin)
	}
	if n > UsernameMax {
		return reject(FieldUsername, CodeTooLong, UsernameMax, "username must be at most %d characters", UsernameMax)
	}
	if !usernameRe.MatchString(s) {
		return reject(FieldUsername, CodeCharset, 0, "username may only contain letters, digits, underscores and CJK characters")
	}
	return nil
}

// Email accepts a conventional local@domain.tld address of at most 100 chars.
func Email(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return reject(FieldEmail, CodeRequired, 0, "email is required")
	}
	if utf8.RuneCountInString(s) > EmailMax {
		return reject(FieldEmail, CodeTooLong, EmailMax, "email must be at most %d characters", EmailMax)
	}
	if !emailRe.MatchString(s) {
		return reject(FieldEmail, CodeFormat, 0, "email format is invalid")
	}
	return nil
}

// Password enforces a length floor and ceiling only. It is not trimmed.
func Password(s string) error {
	if s == "" {
		return reject(FieldPassword, CodeRequired, 0, "password is required")
	}
	n := utf8.RuneCountInString(s)
	if n < PasswordMin {
		return reject(FieldPassword, CodeTooShort, PasswordMin, "password must be at least %d characters", PasswordMin)
	}
	if n > PasswordMax {
		return reject(FieldPassword, CodeTooLong, PasswordMax, "password must be at most %d characters", PasswordMax)
	}
	return nil
}

func PostTitle(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return reject(FieldTitle, CodeRequired, 0, "title is required")
	}
	if utf8.RuneCountInString(s) > TitleMax {
		return reject(FieldTitle, CodeTooLong, TitleMax, "title must be at most %d characters", TitleMax)
	}
	return nil
}

func PostContent(s string) error {
	if strings.TrimSpace(s) == "" {
		return reject(FieldContent, CodeRequired, 0, "content is required")
	}
	return nil
}

func CommentContent(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return reject(FieldContent, CodeRequired, 0, "content is required")
	}
	if utf8.RuneCountInString(s) > CommentContentMax {
		return reject(FieldContent, CodeTooLong, CommentContentMax, "comment must be at most %d characters", CommentContentMax)
	}
	return nil
}

// First returns the first non-nil error, so callers can chain checks in
// field order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
