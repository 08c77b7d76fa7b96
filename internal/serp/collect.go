package serp

import (
	"strings"
	"unicode/utf8"
)

// Filter 文本过滤规则,零值只丢弃空文本
type Filter struct {
	MinChars      int
	MaxChars      int
	QuestionsOnly bool
	Exclude       []string
	DropKeyword   bool
	// Keyword 当前查询的关键词,DropKeyword为true时使用
	Keyword string
}

func (f Filter) accept(text string) bool {
	n := utf8.RuneCountInString(text)
	if n == 0 || n < f.MinChars {
		return false
	}
	if f.MaxChars > 0 && n > f.MaxChars {
		return false
	}
	if f.QuestionsOnly && !strings.HasSuffix(text, "?") {
		return false
	}
	lower := strings.ToLower(text)
	for _, ex := range f.Exclude {
		if ex != "" && strings.Contains(lower, strings.ToLower(ex)) {
			return false
		}
	}
	if f.DropKeyword && f.Keyword != "" && strings.EqualFold(text, strings.TrimSpace(f.Keyword)) {
		return false
	}
	return true
}

// Collect 清理文本,按过滤规则筛选并去重,保持首次出现的顺序,最多保留max条
func Collect(texts []string, max int, filter Filter) []string {
	if max <= 0 {
		return nil
	}
	out := make([]string, 0, min(max, len(texts)))
	seen := make(map[string]struct{}, len(texts))
	for _, raw := range texts {
		text := NormalizeText(raw)
		if !filter.accept(text) {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
		if len(out) >= max {
			break
		}
	}
	return out
}

// NormalizeText 去掉首尾空白并把内部连续空白压缩为单个空格
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
