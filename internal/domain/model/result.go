package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/serp"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// SerpResult 一个关键词/国家组合的提取结果,对应结果表中的一行
type SerpResult struct {
	Row                 int       `json:"row"`
	Keyword             string    `json:"keyword"`
	Country             string    `json:"country"`
	URL                 string    `json:"url"`
	PeopleAlsoAsk       []string  `json:"people_also_ask"`
	PeopleAlsoSearchFor []string  `json:"people_also_search_for"`
	PAACount            int       `json:"paa_count"`
	PASFCount           int       `json:"pasf_count"`
	Status              Status    `json:"status"`
	Error               string    `json:"error,omitempty"`
	PAASelectors        []string  `json:"paa_selectors,omitempty"`
	PASFSelectors       []string  `json:"pasf_selectors,omitempty"`
	ExtractedAt         time.Time `json:"extracted_at"`
}

// Columns 导出表格的表头
func Columns() []string {
	return []string{
		"Keyword",
		"Country",
		"URL",
		"People Also Ask",
		"People Also Search For",
		"PAA count",
		"PASF count",
	}
}

// PAAText 以分隔符连接的PAA问题,或对应状态的占位文本
func (r *SerpResult) PAAText() string {
	switch r.Status {
	case StatusTimeout:
		return serp.TimeoutPlaceholder
	case StatusError:
		if r.Error == "" {
			return serp.ErrorPlaceholder
		}
		return "(error: " + r.Error + ")"
	}
	if len(r.PeopleAlsoAsk) == 0 {
		return serp.NotFound(r.PAASelectors)
	}
	return serp.Join(r.PeopleAlsoAsk)
}

// PASFText 错误时只显示 (error), 不重复错误信息
func (r *SerpResult) PASFText() string {
	switch r.Status {
	case StatusTimeout:
		return serp.TimeoutPlaceholder
	case StatusError:
		return serp.ErrorPlaceholder
	}
	if len(r.PeopleAlsoSearchFor) == 0 {
		return serp.NotFound(r.PASFSelectors)
	}
	return serp.Join(r.PeopleAlsoSearchFor)
}

// Record 与Columns对应的一行
func (r *SerpResult) Record() []string {
	return []string{
		r.Keyword,
		strings.ToUpper(r.Country),
		r.URL,
		r.PAAText(),
		r.PASFText(),
		strconv.Itoa(r.PAACount),
		strconv.Itoa(r.PASFCount),
	}
}

// MarshalJSON 附带界面直接展示的两列文本
func (r *SerpResult) MarshalJSON() ([]byte, error) {
	type plain SerpResult
	return json.Marshal(struct {
		*plain
		PAAText  string `json:"paa_text"`
		PASFText string `json:"pasf_text"`
	}{(*plain)(r), r.PAAText(), r.PASFText()})
}
