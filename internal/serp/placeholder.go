package serp

import (
	"strings"
	"unicode/utf8"
)

const (
	Separator          = " • "
	TimeoutPlaceholder = "(timeout)"
	ErrorPlaceholder   = "(error)"
	errorMessageLimit  = 80
)

// NotFound 选择器没有匹配到任何文本时的占位
func NotFound(selectors []string) string {
	return "(not found with " + strings.Join(selectors, ", ") + ")"
}

// ErrorMessage 错误信息截断到80个字符
func ErrorMessage(err error) string {
	msg := err.Error()
	if utf8.RuneCountInString(msg) > errorMessageLimit {
		msg = string([]rune(msg)[:errorMessageLimit])
	}
	return msg
}

// ErrorText PAA列的错误占位
func ErrorText(err error) string {
	return "(error: " + ErrorMessage(err) + ")"
}

func Join(items []string) string {
	return strings.Join(items, Separator)
}
