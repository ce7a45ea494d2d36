package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/spigell/cv-ranker/internal/table"
)

// WriteCSV writes the report with scores rounded the way the table shows them.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(r.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range r.Rows {
		record := make([]string, 0, len(row.Scores)+4)
		record = append(record, row.Applicant)
		for _, s := range row.Scores {
			if s.OK {
				record = append(record, table.FormatScore(s.Value))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, table.FormatScore(row.Total), row.Algorithmic.String(), row.Final.String())

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
