// Package export writes the reviewed ranking to spreadsheet files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/cv-ranker/internal/ranking"
	"github.com/spigell/cv-ranker/internal/table"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const DefaultSheet = "Ranking"

// Report is the tabular snapshot of a view: every filtered row across all pages.
type Report struct {
	Sections []string
	Rows     []Row
}

type Row struct {
	Applicant   string
	Scores      []Score
	Total       float64
	Algorithmic ranking.Decision
	Final       ranking.Decision
}

// Score is one section cell; OK is false when the candidate has no score for it.
type Score struct {
	Value float64
	OK    bool
}

// FromView captures the rows visible after filtering, with the visible section
// columns and the totals currently displayed.
func FromView(v *table.View) *Report {
	report := &Report{Sections: v.Columns()}
	for _, item := range v.Rows() {
		row := Row{
			Applicant:   item.Identity,
			Total:       item.TotalScore,
			Algorithmic: item.AlgorithmicDecision,
			Final:       item.FinalDecision,
		}
		for _, section := range report.Sections {
			value, ok := item.Score(section)
			row.Scores = append(row.Scores, Score{Value: value, OK: ok})
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

// Header returns the column titles in output order.
func (r *Report) Header() []string {
	header := make([]string, 0, len(r.Sections)+4)
	header = append(header, table.ApplicantColumn)
	header = append(header, r.Sections...)
	return append(header, table.TotalScoreColumn, table.AlgorithmDecisionColumn, table.FinalDecisionColumn)
}

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case string(FormatXLSX):
		return FormatXLSX, nil
	case string(FormatCSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: use .xlsx or .csv", ext)
	}
}

// ToFile writes the report to path in the format implied by its extension.
// The file is replaced only when the whole report was written.
func ToFile(path string, r *Report, sheet string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("create export file: %w", err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(tmp, r)
	default:
		err = WriteXLSX(tmp, r, sheet)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move export file: %w", err)
	}
	return nil
}
