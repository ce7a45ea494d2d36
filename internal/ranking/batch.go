package ranking

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnknownIdentity   = errors.New("unknown candidate")
	ErrDuplicateIdentity = errors.New("duplicate candidate identity")
)

// SchemaError reports a candidate whose section keys differ from the batch schema.
type SchemaError struct {
	Identity string
	Missing  []string
	Extra    []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing sections [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected sections [%s]", strings.Join(e.Extra, ", ")))
	}
	return fmt.Sprintf("heterogeneous ranking batch: candidate %q has %s", e.Identity, strings.Join(parts, " and "))
}

// Batch is one complete set of candidate matches returned by a match run.
type Batch struct {
	ID             string
	JobDescription string
	// Sections is the column schema shared by every candidate, in display order.
	Sections []string
	Items    []*CandidateMatch
}

// NewBatch validates that every candidate carries exactly the schema sections.
// When sections is empty the schema is discovered from the first candidate.
func NewBatch(jobDescription string, sections []string, items []*CandidateMatch) (*Batch, error) {
	if len(sections) == 0 && len(items) > 0 {
		sections = sortedKeys(items[0].SectionScores)
	}

	schema := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		schema[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == nil {
			return nil, errors.New("ranking batch contains an empty candidate")
		}
		if _, ok := seen[item.Identity]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateIdentity, item.Identity)
		}
		seen[item.Identity] = struct{}{}

		if err := checkSchema(item, sections, schema); err != nil {
			return nil, err
		}
	}

	return &Batch{
		ID:             uuid.NewString(),
		JobDescription: jobDescription,
		Sections:       slices.Clone(sections),
		Items:          items,
	}, nil
}

func checkSchema(item *CandidateMatch, sections []string, schema map[string]struct{}) error {
	var missing, extra []string
	for _, s := range sections {
		if _, ok := item.SectionScores[s]; !ok {
			missing = append(missing, s)
		}
	}
	for k := range item.SectionScores {
		if _, ok := schema[k]; !ok {
			extra = append(extra, k)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	slices.Sort(extra)
	return &SchemaError{Identity: item.Identity, Missing: missing, Extra: extra}
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

func (b *Batch) Find(identity string) *CandidateMatch {
	if b == nil {
		return nil
	}
	for _, item := range b.Items {
		if item.Identity == identity {
			return item
		}
	}
	return nil
}

func (b *Batch) HasSection(section string) bool {
	return b != nil && slices.Contains(b.Sections, section)
}

// Override sets the reviewer decision for one candidate. Scores and the
// algorithmic decision are left untouched.
func (b *Batch) Override(identity string, decision Decision) error {
	if !decision.Valid() {
		return fmt.Errorf("override %q: invalid decision %q", identity, decision)
	}

	item := b.Find(identity)
	if item == nil {
		return fmt.Errorf("override %q: %w", identity, ErrUnknownIdentity)
	}

	item.FinalDecision = decision
	item.Overridden = true
	return nil
}

// KeepReviews copies reviewer decisions from prev for candidates present in both
// batches. It returns the identities whose decision was kept.
func (b *Batch) KeepReviews(prev *Batch) []string {
	if b == nil || prev == nil {
		return nil
	}

	var kept []string
	for _, item := range b.Items {
		old := prev.Find(item.Identity)
		if old == nil || !old.Overridden {
			continue
		}
		item.FinalDecision = old.FinalDecision
		item.Overridden = true
		kept = append(kept, item.Identity)
	}
	return kept
}

// Summary counts candidates per final decision.
func (b *Batch) Summary() map[Decision]int {
	summary := make(map[Decision]int, len(Decisions))
	for _, d := range Decisions {
		summary[d] = 0
	}
	if b == nil {
		return summary
	}
	for _, item := range b.Items {
		summary[item.FinalDecision]++
	}
	return summary
}

// Clone returns a deep copy sharing nothing with b.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	cp := &Batch{
		ID:             b.ID,
		JobDescription: b.JobDescription,
		Sections:       slices.Clone(b.Sections),
		Items:          make([]*CandidateMatch, 0, len(b.Items)),
	}
	for _, item := range b.Items {
		cp.Items = append(cp.Items, item.clone())
	}
	return cp
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
