package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/tbourn/go-blog-backend/internal/validate"
)

// Supported response languages; the first is the fallback.
var supportedLangs = []language.Tag{language.English, language.Chinese}

var langMatcher = language.NewMatcher(supportedLangs)

// zhFields and zhMessages localize validation failures for Chinese clients.
var zhFields = map[string]string{
	validate.FieldUsername: "用户名",
	validate.FieldEmail:    "邮箱",
	validate.FieldPassword: "密码",
	validate.FieldTitle:    "标题",
	validate.FieldContent:  "内容",
}

var zhMessages = map[string]string{
	validate.CodeRequired: "%s不能为空",
	validate.CodeTooShort: "%s长度不能少于%d个字符",
	validate.CodeTooLong:  "%s长度不能超过%d个字符",
	validate.CodeCharset:  "%s只能包含字母、数字、下划线和中文",
	validate.CodeFormat:   "%s格式不正确",
}

// requestLang picks the best supported language from Accept-Language.
func requestLang(c *gin.Context) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supportedLangs[idx]
}

// localize renders a validation failure in the request's language. English
// uses the validator's own message.
func localize(c *gin.Context, e *validate.Error) string {
	if requestLang(c) != language.Chinese {
		return e.Message
	}
	tmpl, ok := zhMessages[e.Code]
	if !ok {
		return e.Message
	}
	field := zhFields[e.Field]
	if field == "" {
		field = e.Field
	}
	switch e.Code {
	case validate.CodeTooShort, validate.CodeTooLong:
		return fmt.Sprintf(tmpl, field, e.Limit)
	default:
		return fmt.Sprintf(tmpl, field)
	}
}
