// Package serp 搜索结果页相关的纯逻辑: URL构造, 文本收集与过滤, 国家代码处理
package serp

import (
	"net/url"
	"strings"
)

const (
	DefaultBaseURL  = "https://www.google.com"
	DefaultLanguage = "en"
)

// BuildSearchURL 构造搜索结果页URL,参数顺序固定为 q, gl, hl, num, pws
func BuildSearchURL(base, keyword, country, hl string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	if hl == "" {
		hl = DefaultLanguage
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString("/search?q=")
	b.WriteString(url.QueryEscape(keyword))
	b.WriteString("&gl=")
	b.WriteString(url.QueryEscape(country))
	b.WriteString("&hl=")
	b.WriteString(url.QueryEscape(hl))
	b.WriteString("&num=20&pws=0")
	return b.String()
}

// BuildQuestionURL 构造用于在新标签页打开PAA问题的URL
func BuildQuestionURL(base, question, country string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/search?q=" + url.QueryEscape(question) + "&gl=" + url.QueryEscape(country)
}
