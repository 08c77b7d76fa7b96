package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/nao1215/markdown"
)

type MarkdownWriter struct{}

func (MarkdownWriter) ContentType() string { return "text/markdown; charset=utf-8" }

func (MarkdownWriter) Extension() string { return "md" }

func (MarkdownWriter) Write(w io.Writer, results []*model.SerpResult) error {
	md := markdown.NewMarkdown(w)
	md.H1("Google People Also Ask + People Also Search For")
	md.PlainText("")

	ok, timeouts, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case model.StatusTimeout:
			timeouts++
		case model.StatusError:
			failed++
		default:
			ok++
		}
	}
	md.BulletList(
		fmt.Sprintf("Rows: %d", len(results)),
		fmt.Sprintf("OK: %d", ok),
		fmt.Sprintf("Timeout: %d", timeouts),
		fmt.Sprintf("Error: %d", failed),
	)
	md.PlainText("")

	rows := records(results)
	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		body = append(body, escapeRow(row))
	}
	md.Table(markdown.TableSet{
		Header: rows[0],
		Rows:   body,
	})
	if err := md.Build(); err != nil {
		return fmt.Errorf("写入Markdown失败: %w", err)
	}
	return nil
}

// escapeRow 单元格中的竖线会破坏表格
func escapeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ReplaceAll(cell, "|", `\|`)
	}
	return out
}
