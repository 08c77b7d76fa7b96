// Package export 把结果表写成可下载的文件
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
)

// DefaultBaseName 下载文件的默认文件名(不含扩展名)
const DefaultBaseName = "serp_results_strict_selectors"

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// Writer 一种导出格式
type Writer interface {
	Write(w io.Writer, results []*model.SerpResult) error
	ContentType() string
	Extension() string
}

// ForFormat 空字符串表示csv
func ForFormat(name string) (Writer, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(name, "."))) {
	case FormatCSV, "":
		return CSVWriter{}, nil
	case FormatXLSX, "excel":
		return XLSXWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatMarkdown, "markdown":
		return MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FileName base为空时使用默认文件名
func FileName(base string, w Writer) string {
	if base == "" {
		base = DefaultBaseName
	}
	return base + "." + w.Extension()
}

// records 表头 + 每行结果
func records(results []*model.SerpResult) [][]string {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, model.Columns())
	for _, r := range results {
		rows = append(rows, r.Record())
	}
	return rows
}
