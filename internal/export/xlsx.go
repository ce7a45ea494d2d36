package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName = "Sheet1"
	// builtin number format "0.00"
	twoDecimalsFormat = 2
)

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, r *Report, sheet string) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheetName, sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := r.Header()
	headerCells := make([]any, 0, len(header))
	for _, h := range header {
		headerCells = append(headerCells, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range r.Rows {
		cells := make([]any, 0, len(header))
		cells = append(cells, row.Applicant)
		for _, s := range row.Scores {
			if s.OK {
				cells = append(cells, s.Value)
			} else {
				cells = append(cells, "")
			}
		}
		cells = append(cells, row.Total, row.Algorithmic.String(), row.Final.String())

		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(r.Rows) > 0 {
		if err := styleScores(f, sheet, len(r.Sections)+1, len(r.Rows)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// styleScores formats the section and total columns with two decimals.
func styleScores(f *excelize.File, sheet string, scoreColumns, rows int) error {
	style, err := f.NewStyle(&excelize.Style{NumFmt: twoDecimalsFormat})
	if err != nil {
		return fmt.Errorf("create score style: %w", err)
	}

	first, err := excelize.CoordinatesToCellName(2, 2)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(1+scoreColumns, rows+1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("style scores: %w", err)
	}
	return nil
}
