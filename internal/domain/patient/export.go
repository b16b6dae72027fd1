package patient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetLabTrends     = "Lab trends"
	sheetBloodPressure = "Blood pressure"
)

var (
	labTrendHeader      = []string{"Analyte", "Date", "Value", "Unit"}
	bloodPressureHeader = []string{"Date", "Time", "Systolic", "Diastolic", "Heart rate", "Notes"}
)

// ExportWorkbook returns an xlsx workbook with the lab trends and the blood
// pressure history of a patient.
func (s *Service) ExportWorkbook(ctx context.Context, id string) (*Record, []byte, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := BuildWorkbook(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

// BuildWorkbook renders rec as an xlsx file. Analytes are listed in name order
// and each series keeps its chronological order.
func BuildWorkbook(rec *Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range []string{sheetLabTrends, sheetBloodPressure} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	// Indexes shift once the default sheet is gone.
	if idx, err := f.GetSheetIndex(sheetLabTrends); err == nil {
		f.SetActiveSheet(idx)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	var labRows [][]any
	for _, analyte := range sortedKeys(rec.LabTrends) {
		for _, r := range rec.LabTrends[analyte] {
			labRows = append(labRows, []any{analyte, r.Date, r.Value, r.Unit})
		}
	}
	if err := writeSheet(f, sheetLabTrends, labTrendHeader, labRows, headerStyle); err != nil {
		return nil, err
	}

	bpRows := make([][]any, 0, len(rec.BloodPressureHistory))
	for _, bp := range rec.BloodPressureHistory {
		var hr any
		if bp.HeartRate != nil {
			hr = *bp.HeartRate
		}
		bpRows = append(bpRows, []any{bp.Date, bp.Time, bp.Systolic, bp.Diastolic, hr, bp.Notes})
	}
	if err := writeSheet(f, sheetBloodPressure, bloodPressureHeader, bpRows, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	for i, row := range rows {
		for col, v := range row {
			if v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
