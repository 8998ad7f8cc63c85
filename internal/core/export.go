package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name of XLSX exports.
const ExportSheet = "indicators"

// WriteCSV writes the frame as UTF-8 CSV with a header of its columns.
// NULL cells are written as empty fields.
func WriteCSV(w io.Writer, frame Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frame.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(frame.Strings()); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// ReadCSV parses an export produced by WriteCSV back into header and rows.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}
	return records[0], records[1:], nil
}

// WriteXLSX writes the frame as a single-sheet workbook with a header row.
// Numeric cells keep their numeric type; NULL cells are left blank.
func WriteXLSX(w io.Writer, frame Frame) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(frame.Columns))
	for i, col := range frame.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range frame.Rows {
		values := make([]interface{}, len(row))
		for j, c := range row {
			switch {
			case c.Null:
				values[j] = nil
			case c.Kind == KindText:
				values[j] = c.Text
			case c.Kind == KindInteger:
				values[j] = int64(c.Num)
			default:
				values[j] = c.Num
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
