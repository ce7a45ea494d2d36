package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-ranker/internal/ranking"
	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/table"
)

func reviewedView(t *testing.T) *table.View {
	t.Helper()

	batch, err := ranking.NewBatch("job.json", []string{"Education", "Skills"}, []*ranking.CandidateMatch{
		ranking.NewCandidateMatch("alice.json", map[string]float64{"Education": 80, "Skills": 60}, 65),
		ranking.NewCandidateMatch("bob.json", map[string]float64{"Education": 95, "Skills": 90}, 92),
		ranking.NewCandidateMatch("carol.json", map[string]float64{"Education": 20, "Skills": 30}, 25),
	})
	require.NoError(t, err)

	// Weights changed after the batch arrived: totals must follow.
	scoring.Recompute(batch, scoring.WeightSet{"Education": 60, "Skills": 40})

	v := table.New(batch, 2)
	require.NoError(t, v.Override("alice", ranking.Accepted))
	return v
}

func TestCSVExportShowsOverrideAndAlgorithmDecision(t *testing.T) {
	v := reviewedView(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromView(v)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "all filtered rows across pages are exported")

	assert.Equal(t, []string{"Applicant Name", "Education", "Skills", "Total Score", "Algorithm Decision", "Final Decision"}, records[0])
	assert.Equal(t, []string{"alice", "80.00", "60.00", "72.00", "Shortlisted", "Accepted"}, records[1])
}

func TestExportUsesFilterAndVisibleColumns(t *testing.T) {
	v := reviewedView(t)
	require.NoError(t, v.SetFilter(table.Filter{Decision: ranking.Accepted}))
	require.NoError(t, v.StageColumns([]string{"Skills"}))
	v.ApplyColumns()

	report := FromView(v)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, []string{"Applicant Name", "Skills", "Total Score", "Algorithm Decision", "Final Decision"}, report.Header())
	assert.Equal(t, "alice", report.Rows[0].Applicant)
	assert.Equal(t, "bob", report.Rows[1].Applicant)
	assert.Len(t, report.Rows[0].Scores, 1)
}

func TestXLSXExport(t *testing.T) {
	v := reviewedView(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, FromView(v), ""))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Final Decision", rows[0][5])
	assert.Equal(t, "alice", rows[1][0])
	assert.Equal(t, "Shortlisted", rows[1][4])
	assert.Equal(t, "Accepted", rows[1][5])

	total, err := strconv.ParseFloat(rows[1][3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 72, total, 0.001)
}

func TestToFilePicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	report := FromView(reviewedView(t))

	csvPath := filepath.Join(dir, "ranking.csv")
	require.NoError(t, ToFile(csvPath, report, ""))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Applicant Name")

	xlsxPath := filepath.Join(dir, "ranking.xlsx")
	require.NoError(t, ToFile(xlsxPath, report, "Review"))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Review"}, f.GetSheetList())

	assert.Error(t, ToFile(filepath.Join(dir, "ranking.pdf"), report, ""))
}

func TestToFileKeepsPreviousExportOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranking.xlsx")
	report := FromView(reviewedView(t))

	require.NoError(t, ToFile(path, report, "Review"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Error(t, ToFile(path, report, "bad:name"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed export must not touch the existing file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}
