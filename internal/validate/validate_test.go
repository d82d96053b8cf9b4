package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var ve *Error
	require.True(t, errors.As(err, &ve), "expected *validate.Error, got %T", err)
	require.ErrorIs(t, err, ErrInvalid)
	return ve.Code
}

func TestUsername(t *testing.T) {
	ok := []string{"ab", "user_01", "张三", "  ab  ", "a_中文_1", strings.Repeat("x", 50), "José", "Müller", "Ελένη", "Иван_2", "山田太郎", "٣٤ab"}
	for _, s := range ok {
		assert.NoError(t, Username(s), "username %q", s)
	}

	cases := []struct {
		in   string
		code string
	}{
		{"", CodeRequired},
		{"   ", CodeRequired},
		{"a", CodeTooShort},
		{" a ", CodeTooShort},
		{strings.Repeat("x", 51), CodeTooLong},
		{"bad name", CodeCharset},
		{"a-b", CodeCharset},
		{"a@b", CodeCharset},
		{"José!", CodeCharset},
		{"ab\u00a0cd", CodeCharset},
	}
	for _, tc := range cases {
		err := Username(tc.in)
		require.Error(t, err, "username %q", tc.in)
		assert.Equal(t, tc.code, codeOf(t, err), "username %q", tc.in)
	}
}

func TestUsername_CountsRunesNotBytes(t *testing.T) {
	// 50 CJK ideographs are 150 bytes but still within limit.
	assert.NoError(t, Username(strings.Repeat("中", 50)))
	assert.Equal(t, CodeTooLong, codeOf(t, Username(strings.Repeat("中", 51))))
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("a@b.com"))
	assert.NoError(t, Email("  first.last+tag@sub.example.org "))

	long := strings.Repeat("a", 95) + "@b.com" // 101 chars
	cases := []struct {
		in   string
		code string
	}{
		{"", CodeRequired},
		{" \t", CodeRequired},
		{long, CodeTooLong},
		{"plain", CodeFormat},
		{"a@b", CodeFormat},
		{"a@b.c", CodeFormat},
		{"a b@c.com", CodeFormat},
	}
	for _, tc := range cases {
		err := Email(tc.in)
		require.Error(t, err, "email %q", tc.in)
		assert.Equal(t, tc.code, codeOf(t, err), "email %q", tc.in)
	}
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("123456"))
	assert.NoError(t, Password(strings.Repeat("p", 128)))
	// Spaces count; passwords are not trimmed.
	assert.NoError(t, Password("      "))

	assert.Equal(t, CodeRequired, codeOf(t, Password("")))
	assert.Equal(t, CodeTooShort, codeOf(t, Password("12345")))
	assert.Equal(t, CodeTooLong, codeOf(t, Password(strings.Repeat("p", 129))))
}

func TestPostTitleAndContent(t *testing.T) {
	assert.NoError(t, PostTitle("hello"))
	assert.NoError(t, PostTitle(strings.Repeat("t", 200)))
	assert.NoError(t, PostTitle("  "+strings.Repeat("t", 200)+"  "))
	assert.Equal(t, CodeRequired, codeOf(t, PostTitle("   ")))
	assert.Equal(t, CodeTooLong, codeOf(t, PostTitle(strings.Repeat("t", 201))))

	assert.NoError(t, PostContent("body"))
	assert.NoError(t, PostContent(strings.Repeat("b", 100000)))
	assert.Equal(t, CodeRequired, codeOf(t, PostContent("\n\t ")))
}

func TestCommentContent(t *testing.T) {
	assert.NoError(t, CommentContent("nice post"))
	assert.NoError(t, CommentContent(strings.Repeat("c", 1000)))

	err := CommentContent(strings.Repeat("c", 1001))
	require.Error(t, err)
	assert.Equal(t, CodeTooLong, codeOf(t, err))

	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldContent, ve.Field)
	assert.Equal(t, CommentContentMax, ve.Limit)

	assert.Equal(t, CodeRequired, codeOf(t, CommentContent("")))
}

func TestFirst(t *testing.T) {
	assert.NoError(t, First(nil, nil))
	err := First(nil, Username("a"), Email(""))
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldUsername, ve.Field)
}
