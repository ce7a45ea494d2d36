// Package table holds the reviewer's view over a ranking batch: sorting, filtering,
// column visibility, pagination and decision overrides.
package table

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/cv-ranker/internal/ranking"
)

// TotalScoreKey sorts by the aggregate score instead of a section.
const TotalScoreKey = "total_score"

const DefaultPageSize = 8

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrPageOutOfRange = errors.New("page out of range")
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Filter selects rows by final decision. The zero value keeps every row.
type Filter struct {
	Decision ranking.Decision
}

// All keeps every row.
var All = Filter{}

func (f Filter) String() string {
	if f.Decision == "" {
		return "All"
	}
	return f.Decision.String()
}

func (f Filter) match(item *ranking.CandidateMatch) bool {
	return f.Decision == "" || item.FinalDecision == f.Decision
}

// ParseFilter accepts "All" or a decision name in any letter case.
func ParseFilter(s string) (Filter, error) {
	if trimmed := strings.TrimSpace(s); trimmed == "" || strings.EqualFold(trimmed, All.String()) {
		return All, nil
	}
	d, err := ranking.ParseDecision(s)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Decision: d}, nil
}

// View is the reviewer's state over one batch.
type View struct {
	batch    *ranking.Batch
	pageSize int

	sortKey   string
	direction Direction
	filter    Filter

	columns []string
	staged  []string

	page int
}

func New(batch *ranking.Batch, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	v := &View{pageSize: pageSize, page: 1}
	v.SetBatch(batch)
	return v
}

// SetBatch replaces the batch under review. Visible columns that still exist
// are kept, the sort is kept when its column exists and the page resets.
func (v *View) SetBatch(batch *ranking.Batch) {
	previous := v.batch
	v.batch = batch
	v.staged = nil
	v.page = 1

	if batch == nil {
		v.columns = nil
		return
	}

	if previous == nil || v.columns == nil {
		v.columns = slices.Clone(batch.Sections)
	} else {
		kept := make([]string, 0, len(v.columns))
		for _, c := range batch.Sections {
			if slices.Contains(v.columns, c) {
				kept = append(kept, c)
			}
		}
		v.columns = kept
	}

	if v.sortKey != "" && v.sortKey != TotalScoreKey && !batch.HasSection(v.sortKey) {
		v.sortKey = ""
		v.direction = Ascending
	}
}

func (v *View) Batch() *ranking.Batch { return v.batch }

// Sort orders rows by key. Sorting by the current key flips the direction,
// a new key starts ascending.
func (v *View) Sort(key string) error {
	if key != TotalScoreKey && !v.batch.HasSection(key) {
		return fmt.Errorf("sort by %q: %w", key, ErrUnknownColumn)
	}

	if v.sortKey == key {
		v.direction = 1 - v.direction
	} else {
		v.sortKey = key
		v.direction = Ascending
	}
	v.page = 1
	return nil
}

// SortState returns the active sort key (empty for batch order) and direction.
func (v *View) SortState() (string, Direction) {
	return v.sortKey, v.direction
}

func (v *View) SetFilter(f Filter) error {
	if f.Decision != "" && !f.Decision.Valid() {
		return fmt.Errorf("filter: invalid decision %q", f.Decision)
	}
	v.filter = f
	v.page = 1
	return nil
}

func (v *View) Filter() Filter { return v.filter }

// StageColumns records a pending column selection without changing the view.
func (v *View) StageColumns(columns []string) error {
	for _, c := range columns {
		if !v.batch.HasSection(c) {
			return fmt.Errorf("column %q: %w", c, ErrUnknownColumn)
		}
	}

	staged := make([]string, 0, len(columns))
	for _, c := range v.batch.Sections {
		if slices.Contains(columns, c) {
			staged = append(staged, c)
		}
	}
	v.staged = staged
	return nil
}

// ApplyColumns makes the staged selection visible.
func (v *View) ApplyColumns() {
	if v.staged == nil {
		return
	}
	v.columns = v.staged
	v.staged = nil
}

func (v *View) CancelColumns() {
	v.staged = nil
}

// Columns returns the visible section columns in schema order.
func (v *View) Columns() []string { return slices.Clone(v.columns) }

// StagedColumns returns the pending selection and whether one exists.
func (v *View) StagedColumns() ([]string, bool) {
	if v.staged == nil {
		return nil, false
	}
	return slices.Clone(v.staged), true
}

// Rows returns every row after sorting and filtering, across all pages.
func (v *View) Rows() []*ranking.CandidateMatch {
	if v.batch == nil {
		return nil
	}

	type indexed struct {
		idx  int
		item *ranking.CandidateMatch
	}

	rows := make([]indexed, 0, len(v.batch.Items))
	for i, item := range v.batch.Items {
		rows = append(rows, indexed{idx: i, item: item})
	}

	if v.sortKey != "" {
		slices.SortStableFunc(rows, func(a, b indexed) int {
			c := compareBy(v.sortKey, a.item, b.item)
			if v.direction == Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
			return cmp.Compare(a.idx, b.idx)
		})
	}

	result := make([]*ranking.CandidateMatch, 0, len(rows))
	for _, r := range rows {
		if v.filter.match(r.item) {
			result = append(result, r.item)
		}
	}
	return result
}

// compareBy orders missing scores before present ones.
func compareBy(key string, a, b *ranking.CandidateMatch) int {
	if key == TotalScoreKey {
		return cmp.Compare(a.TotalScore, b.TotalScore)
	}

	av, aok := a.Score(key)
	bv, bok := b.Score(key)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return cmp.Compare(av, bv)
}

func (v *View) PageSize() int { return v.pageSize }

func (v *View) Page() int { return v.page }

// TotalPages is at least 1 so an empty view still has a page to show.
func (v *View) TotalPages() int {
	n := len(v.Rows())
	if n == 0 {
		return 1
	}
	return (n + v.pageSize - 1) / v.pageSize
}

func (v *View) SetPage(page int) error {
	if page < 1 || page > v.TotalPages() {
		return fmt.Errorf("page %d of %d: %w", page, v.TotalPages(), ErrPageOutOfRange)
	}
	v.page = page
	return nil
}

func (v *View) NextPage() error { return v.SetPage(v.page + 1) }

func (v *View) PrevPage() error { return v.SetPage(v.page - 1) }

// PageRows returns the rows of the current page.
func (v *View) PageRows() []*ranking.CandidateMatch {
	rows := v.Rows()
	start := (v.page - 1) * v.pageSize
	if start >= len(rows) {
		return nil
	}
	end := min(start+v.pageSize, len(rows))
	return rows[start:end]
}

// Override changes the reviewer decision of one candidate.
func (v *View) Override(identity string, decision ranking.Decision) error {
	if v.batch == nil {
		return fmt.Errorf("override %q: %w", identity, ranking.ErrUnknownIdentity)
	}
	if err := v.batch.Override(identity, decision); err != nil {
		return err
	}
	// The row may have left the filtered set.
	if v.page > v.TotalPages() {
		v.page = v.TotalPages()
	}
	return nil
}
