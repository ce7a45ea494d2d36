package table

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-ranker/internal/ranking"
)

func newBatch(t *testing.T, rows ...[3]float64) *ranking.Batch {
	t.Helper()

	items := make([]*ranking.CandidateMatch, 0, len(rows))
	for i, r := range rows {
		items = append(items, ranking.NewCandidateMatch(
			fmt.Sprintf("cand%02d.json", i),
			map[string]float64{"Education": r[0], "Skills": r[1]},
			r[2],
		))
	}

	batch, err := ranking.NewBatch("job.json", []string{"Education", "Skills"}, items)
	require.NoError(t, err)
	return batch
}

func identities(rows []*ranking.CandidateMatch) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Identity)
	}
	return ids
}

func TestSortTogglesDirectionAndBreaksTiesByBatchOrder(t *testing.T) {
	batch := newBatch(t,
		[3]float64{80, 50, 90},
		[3]float64{60, 50, 70},
		[3]float64{80, 40, 60},
		[3]float64{70, 90, 88},
	)
	v := New(batch, 0)

	require.NoError(t, v.Sort("Education"))
	assert.Equal(t, []string{"cand01", "cand03", "cand00", "cand02"}, identities(v.Rows()))

	require.NoError(t, v.Sort("Education"))
	key, dir := v.SortState()
	assert.Equal(t, "Education", key)
	assert.Equal(t, Descending, dir)
	assert.Equal(t, []string{"cand00", "cand02", "cand03", "cand01"}, identities(v.Rows()))

	require.NoError(t, v.Sort(TotalScoreKey))
	_, dir = v.SortState()
	assert.Equal(t, Ascending, dir, "a new column starts ascending")
	assert.Equal(t, []string{"cand02", "cand01", "cand03", "cand00"}, identities(v.Rows()))
}

func TestSortIsIdempotent(t *testing.T) {
	batch := newBatch(t,
		[3]float64{50, 50, 50},
		[3]float64{50, 60, 55},
		[3]float64{40, 60, 50},
	)

	once := New(batch, 0)
	require.NoError(t, once.Sort("Skills"))

	twice := New(batch, 0)
	require.NoError(t, twice.Sort("Skills"))
	first := identities(twice.Rows())
	assert.Equal(t, identities(once.Rows()), first)
	assert.Equal(t, first, identities(twice.Rows()))
}

func TestReversingTwiceRestoresOrder(t *testing.T) {
	batch := newBatch(t,
		[3]float64{50, 50, 50},
		[3]float64{50, 60, 55},
		[3]float64{40, 60, 50},
		[3]float64{50, 10, 50},
	)
	v := New(batch, 0)

	require.NoError(t, v.Sort("Education"))
	asc := identities(v.Rows())

	require.NoError(t, v.Sort("Education"))
	require.NoError(t, v.Sort("Education"))
	assert.Equal(t, asc, identities(v.Rows()))
}

func TestSortRejectsUnknownColumn(t *testing.T) {
	v := New(newBatch(t, [3]float64{1, 2, 3}), 0)
	assert.ErrorIs(t, v.Sort("Mission"), ErrUnknownColumn)
}

func TestFilterThenAllRestoresSortedRows(t *testing.T) {
	batch := newBatch(t,
		[3]float64{90, 90, 90},
		[3]float64{70, 70, 72},
		[3]float64{10, 10, 10},
		[3]float64{88, 88, 86},
	)
	v := New(batch, 0)
	require.NoError(t, v.Sort(TotalScoreKey))
	full := identities(v.Rows())

	require.NoError(t, v.SetFilter(Filter{Decision: ranking.Accepted}))
	assert.Equal(t, []string{"cand03", "cand00"}, identities(v.Rows()))

	require.NoError(t, v.SetFilter(All))
	assert.Equal(t, full, identities(v.Rows()))
}

func TestParseFilter(t *testing.T) {
	for _, input := range []string{"", "all", "All", "aLL", " ALL "} {
		f, err := ParseFilter(input)
		require.NoError(t, err, input)
		assert.Equal(t, All, f, input)
	}

	f, err := ParseFilter(" pending")
	require.NoError(t, err)
	assert.Equal(t, ranking.Pending, f.Decision)

	_, err = ParseFilter("rejected")
	assert.Error(t, err)
}

func TestPaginationResetsOnSortAndFilter(t *testing.T) {
	rows := make([][3]float64, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, [3]float64{float64(i), float64(i), float64(i)})
	}
	v := New(newBatch(t, rows...), 8)

	assert.Equal(t, 3, v.TotalPages())
	require.NoError(t, v.SetPage(3))
	assert.Len(t, v.PageRows(), 4)

	require.NoError(t, v.Sort("Skills"))
	assert.Equal(t, 1, v.Page())

	require.NoError(t, v.SetPage(3))
	require.NoError(t, v.SetFilter(Filter{Decision: ranking.Shortlisted}))
	assert.Equal(t, 1, v.Page())

	assert.ErrorIs(t, v.SetPage(0), ErrPageOutOfRange)
	assert.ErrorIs(t, v.SetPage(4), ErrPageOutOfRange)
	assert.ErrorIs(t, v.PrevPage(), ErrPageOutOfRange)
	require.NoError(t, v.NextPage())
	assert.Equal(t, 2, v.Page())
}

func TestColumnVisibilityIsStaged(t *testing.T) {
	v := New(newBatch(t, [3]float64{1, 2, 3}), 0)
	assert.Equal(t, []string{"Education", "Skills"}, v.Columns())

	require.NoError(t, v.StageColumns([]string{"Skills"}))
	assert.Equal(t, []string{"Education", "Skills"}, v.Columns(), "staging must not change visible columns")

	v.CancelColumns()
	_, staged := v.StagedColumns()
	assert.False(t, staged)
	v.ApplyColumns()
	assert.Equal(t, []string{"Education", "Skills"}, v.Columns())

	require.NoError(t, v.StageColumns([]string{"Skills"}))
	v.ApplyColumns()
	assert.Equal(t, []string{"Skills"}, v.Columns())

	assert.ErrorIs(t, v.StageColumns([]string{"Mission"}), ErrUnknownColumn)
}

func TestOverrideKeepsPageInRange(t *testing.T) {
	rows := make([][3]float64, 0, 9)
	for i := 0; i < 9; i++ {
		rows = append(rows, [3]float64{10, 10, 10})
	}
	v := New(newBatch(t, rows...), 8)
	require.NoError(t, v.SetFilter(Filter{Decision: ranking.Shortlisted}))
	require.NoError(t, v.SetPage(2))

	require.NoError(t, v.Override("cand08", ranking.Accepted))
	assert.Equal(t, 1, v.Page())

	item := v.Batch().Find("cand08")
	assert.Equal(t, ranking.Accepted, item.FinalDecision)
	assert.Equal(t, ranking.Shortlisted, item.AlgorithmicDecision)
}

func TestSetBatchKeepsVisibleColumns(t *testing.T) {
	v := New(newBatch(t, [3]float64{1, 2, 3}), 0)
	require.NoError(t, v.StageColumns([]string{"Skills"}))
	v.ApplyColumns()
	require.NoError(t, v.Sort("Skills"))

	v.SetBatch(newBatch(t, [3]float64{4, 5, 6}))
	assert.Equal(t, []string{"Skills"}, v.Columns())
	key, _ := v.SortState()
	assert.Equal(t, "Skills", key)
}

func TestRenderEmptyView(t *testing.T) {
	var buf bytes.Buffer
	r := &Renderer{}
	require.NoError(t, r.Render(&buf, New(nil, 0)))
	assert.Equal(t, "No data available\n", buf.String())
}

func TestRenderShowsDecisionsAndSortMarker(t *testing.T) {
	v := New(newBatch(t, [3]float64{80, 60, 72}, [3]float64{90, 90, 90}), 0)
	require.NoError(t, v.Sort(TotalScoreKey))
	require.NoError(t, v.Override("cand00", ranking.Accepted))

	var buf bytes.Buffer
	r := &Renderer{}
	require.NoError(t, r.Render(&buf, v))

	out := buf.String()
	assert.Contains(t, out, "Total Score ▲")
	assert.Contains(t, out, "● Pending")
	assert.Contains(t, out, "● Accepted *")
	assert.Contains(t, out, "72.00")
	assert.True(t, strings.HasSuffix(out, "page 1 of 1 | 2 candidates | filter: All\n"), out)
}
