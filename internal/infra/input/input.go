// Package input 读取上传的关键词表格(CSV或XLSX)
package input

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/serp"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrEmptyTable        = errors.New("table has no header row")
)

// Table 第一行作为表头, 每行长度都补齐到表头长度
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Read 根据文件扩展名选择解析方式
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}
	return &Table{Columns: header, Rows: rows}, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Head 前n行, 用于预览
func (t *Table) Head(n int) [][]string {
	return t.Rows[:min(n, len(t.Rows))]
}

func (t *Table) columnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// DetectColumns 按列名猜测关键词列和国家代码列, 猜不到时使用第一列和第二列.
// 国家列不会与关键词列相同
func (t *Table) DetectColumns() (keyword, country string) {
	keyword = t.findColumn("", "keyword", "query", "kw", "term", "search")
	if keyword == "" && len(t.Columns) > 0 {
		keyword = t.Columns[0]
	}
	country = t.findColumn(keyword, "country", "gl", "cc", "region", "market", "code")
	if country == "" {
		for _, c := range t.Columns {
			if c != keyword {
				country = c
				break
			}
		}
	}
	return keyword, country
}

// findColumn 按单词匹配列名, "gl"不会匹配"English"; 较长的提示词也匹配复数等前缀形式
func (t *Table) findColumn(exclude string, hints ...string) string {
	for _, hint := range hints {
		for _, c := range t.Columns {
			if c == exclude {
				continue
			}
			if matchesHint(c, hint) {
				return c
			}
		}
	}
	return ""
}

func matchesHint(column, hint string) bool {
	words := strings.FieldsFunc(strings.ToLower(column), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == hint || (len(hint) >= 5 && strings.HasPrefix(w, hint)) {
			return true
		}
	}
	return false
}

// Queries 把表格转换为查询列表.
// 关键词为空的行被跳过, 国家为空时使用us; countryCol为空表示所有行都使用us.
// 第二个返回值是无法识别的国家代码, 这些行仍然保留原值
func (t *Table) Queries(keywordCol, countryCol string) ([]entity.Query, []string, error) {
	ki := t.columnIndex(keywordCol)
	if ki < 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, keywordCol)
	}
	ci := -1
	if countryCol != "" {
		if ci = t.columnIndex(countryCol); ci < 0 {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, countryCol)
		}
	}

	queries := make([]entity.Query, 0, len(t.Rows))
	var unknown []string
	for i, row := range t.Rows {
		keyword := strings.TrimSpace(row[ki])
		if keyword == "" {
			continue
		}
		raw := ""
		if ci >= 0 {
			raw = row[ci]
		}
		country, err := serp.NormalizeCountry(raw)
		if err != nil && !slices.Contains(unknown, country) {
			unknown = append(unknown, country)
		}
		queries = append(queries, entity.Query{Row: i, Keyword: keyword, Country: country})
	}
	return queries, unknown, nil
}
