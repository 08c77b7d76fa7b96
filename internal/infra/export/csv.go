package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
)

// CSVWriter UTF-8, 无BOM, 第一行为表头
type CSVWriter struct{}

func (CSVWriter) ContentType() string { return "text/csv" }

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(w io.Writer, results []*model.SerpResult) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records(results)); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	return nil
}
