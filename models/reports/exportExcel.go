package reports

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter is one data row of a sheet.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

// writeSheet writes headings on row 1 and one row per exporter below. The sheet is created when missing.
func writeSheet(f *excelize.File, sheetName string, headings []string, data []ExcelExporter) error {
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	rowNo := 2
	for _, d := range data {
		for i, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("%s!%s: %w", sheetName, cell, err)
			}
		}
		rowNo++
	}
	return nil
}

func writeWorkbook(f *excelize.File, w io.Writer) error {
	defer f.Close()
	return f.Write(w)
}

// workbookBytes renders f and closes it.
func workbookBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWorkbook(f, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
