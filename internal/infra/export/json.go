package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
)

type JSONWriter struct{}

func (JSONWriter) ContentType() string { return "application/json" }

func (JSONWriter) Extension() string { return "json" }

// Write 输出结果对象数组, 包含状态和原始列表
func (JSONWriter) Write(w io.Writer, results []*model.SerpResult) error {
	if results == nil {
		results = []*model.SerpResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("写入JSON失败: %w", err)
	}
	return nil
}
