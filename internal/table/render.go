package table

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/spigell/cv-ranker/internal/ranking"
)

const (
	ApplicantColumn         = "Applicant Name"
	TotalScoreColumn        = "Total Score"
	AlgorithmDecisionColumn = "Algorithm Decision"
	FinalDecisionColumn     = "Final Decision"

	noData       = "No data available"
	missingScore = "-"
)

// FormatScore rounds a score for display.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Renderer prints a view as a terminal table.
type Renderer struct {
	Colors bool
}

// Render writes the current page of the view followed by a status line.
func (r *Renderer) Render(w io.Writer, v *View) error {
	rows := v.PageRows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, noData)
		return err
	}

	columns := v.Columns()
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignCenter},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignCenter},
			},
		}),
	)

	table.Header(r.header(v, columns))

	body := make([][]string, 0, len(rows))
	for _, item := range rows {
		body = append(body, r.row(item, columns))
	}
	if err := table.Bulk(body); err != nil {
		return fmt.Errorf("render rows: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	_, err := fmt.Fprintf(w, "page %d of %d | %d candidates | filter: %s\n",
		v.Page(), v.TotalPages(), len(v.Rows()), v.Filter())
	return err
}

func (r *Renderer) header(v *View, columns []string) []string {
	key, dir := v.SortState()
	marker := func(column string) string {
		switch {
		case column != key:
			return ""
		case dir == Descending:
			return " ▼"
		default:
			return " ▲"
		}
	}

	header := []string{ApplicantColumn}
	for _, c := range columns {
		header = append(header, c+marker(c))
	}
	header = append(header, TotalScoreColumn+marker(TotalScoreKey))
	return append(header, AlgorithmDecisionColumn, FinalDecisionColumn)
}

func (r *Renderer) row(item *ranking.CandidateMatch, columns []string) []string {
	row := []string{item.Identity}
	for _, c := range columns {
		if score, ok := item.Score(c); ok {
			row = append(row, FormatScore(score))
		} else {
			row = append(row, missingScore)
		}
	}

	final := r.Badge(item.FinalDecision)
	if item.Overridden {
		final += " *"
	}
	return append(row, FormatScore(item.TotalScore), r.Badge(item.AlgorithmicDecision), final)
}

// Badge returns a decision label, colored when colors are on.
func (r *Renderer) Badge(d ranking.Decision) string {
	label := "● " + d.String()

	var c *color.Color
	switch d {
	case ranking.Accepted:
		c = color.New(color.FgGreen, color.Bold)
	case ranking.Pending:
		c = color.New(color.FgYellow, color.Bold)
	case ranking.Shortlisted:
		c = color.New(color.FgRed, color.Bold)
	default:
		return d.String()
	}

	if !r.Colors {
		return label
	}
	c.EnableColor()
	return c.Sprint(label)
}

// RenderSummary prints the count of candidates per final decision.
func (r *Renderer) RenderSummary(w io.Writer, batch *ranking.Batch) error {
	summary := batch.Summary()
	for _, d := range ranking.Decisions {
		if _, err := fmt.Fprintf(w, "%s: %d\n", r.Badge(d), summary[d]); err != nil {
			return err
		}
	}
	return nil
}
