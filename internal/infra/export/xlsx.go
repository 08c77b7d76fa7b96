package export

import (
	"fmt"
	"io"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Results"

// 与Columns顺序对应的列宽
var columnWidths = []float64{24, 10, 48, 80, 60, 10, 10}

type XLSXWriter struct{}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Extension() string { return "xlsx" }

func (XLSXWriter) Write(w io.Writer, results []*model.SerpResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("设置工作表名称失败: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("创建样式失败: %w", err)
	}

	for i, rec := range records(results) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		// 数量列写成数字
		if i > 0 {
			row[5], row[6] = results[i-1].PAACount, results[i-1].PASFCount
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", i+1, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(model.Columns()))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("设置表头样式失败: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("设置列宽失败: %w", err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}
