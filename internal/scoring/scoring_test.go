package scoring

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/spigell/cv-ranker/internal/ranking"
)

func TestAggregateExample(t *testing.T) {
	got := Aggregate(
		map[string]float64{"Education": 80, "Skills": 60},
		map[string]float64{"Education": 60, "Skills": 40},
	)
	if math.Abs(got-72) > 1e-9 {
		t.Fatalf("expected 72, got %v", got)
	}
}

func TestAggregateIgnoresUnknownSections(t *testing.T) {
	got := Aggregate(
		map[string]float64{"Education": 80, "Mission": 100},
		map[string]float64{"Education": 50, "Skills": 50},
	)
	if got != 40 {
		t.Fatalf("expected 40, got %v", got)
	}

	if got := Aggregate(nil, map[string]float64{"Skills": 100}); got != 0 {
		t.Fatalf("expected 0 for empty scores, got %v", got)
	}
}

func TestAggregateIsBoundedForValidWeights(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	sections := []string{"Education", "Work Experience", "Skills", "Mission"}

	for i := 0; i < 500; i++ {
		weights := randomWeights(rnd, sections)
		if !weights.Valid() {
			t.Fatalf("generated weights are invalid: %v (sum %v)", weights, weights.Sum())
		}

		scores := make(map[string]float64, len(sections))
		for _, s := range sections {
			scores[s] = rnd.Float64() * 100
		}

		got := Aggregate(scores, weights)
		if got < 0 || got > 100+1e-9 {
			t.Fatalf("aggregate %v out of bounds for scores %v and weights %v", got, scores, weights)
		}
	}
}

func randomWeights(rnd *rand.Rand, sections []string) WeightSet {
	raw := make([]float64, len(sections))
	var total float64
	for i := range raw {
		raw[i] = rnd.Float64()
		total += raw[i]
	}

	ws := make(WeightSet, len(sections))
	for i, s := range sections {
		ws[s] = raw[i] / total * 100
	}
	return ws
}

func TestRecomputeKeepsAlgorithmicDecision(t *testing.T) {
	batch, err := ranking.NewBatch("", nil, []*ranking.CandidateMatch{
		ranking.NewCandidateMatch("a.json", map[string]float64{"Education": 80, "Skills": 60}, 90),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Recompute(batch, WeightSet{"Education": 60, "Skills": 40})

	item := batch.Items[0]
	if math.Abs(item.TotalScore-72) > 1e-9 {
		t.Fatalf("expected total 72, got %v", item.TotalScore)
	}
	if item.AlgorithmicDecision != ranking.Accepted {
		t.Fatalf("algorithmic decision must not change, got %s", item.AlgorithmicDecision)
	}
}

func TestWeightSetValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		weights WeightSet
		wantErr bool
	}{
		{name: "exact", weights: WeightSet{"A": 50, "B": 50}},
		{name: "within tolerance", weights: WeightSet{"A": 33.333, "B": 33.333, "C": 33.333}},
		{name: "over", weights: WeightSet{"A": 60, "B": 50}, wantErr: true},
		{name: "under", weights: WeightSet{"A": 10, "B": 50}, wantErr: true},
		{name: "negative", weights: WeightSet{"A": -10, "B": 110}, wantErr: true},
		{name: "empty", weights: WeightSet{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.weights.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %v", tt.weights)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEqualWeights(t *testing.T) {
	ws := EqualWeights([]string{"Education", "Work Experience", "Skills", "Mission"})
	if ws["Skills"] != 25 || !ws.Valid() {
		t.Fatalf("unexpected equal weights: %v", ws)
	}
}

func TestEditorCommitSequence(t *testing.T) {
	order := []string{"Education", "WorkExperience", "Skills", "Mission"}
	editor := NewEditor(order, EqualWeights(order))
	if editor.State() != Committed {
		t.Fatalf("expected committed state, got %s", editor.State())
	}

	edits := []struct {
		section string
		value   float64
	}{
		{"Education", 50},
		{"WorkExperience", 50},
		{"Skills", 0},
		{"Mission", 0},
	}
	for _, e := range edits {
		if err := editor.Set(e.section, e.value); err != nil {
			t.Fatalf("set %s: %v", e.section, err)
		}
	}

	if editor.State() != Valid {
		t.Fatalf("expected valid state, got %s", editor.State())
	}

	committed, err := editor.Commit()
	if err != nil {
		t.Fatalf("expected commit to succeed, got %v", err)
	}
	if committed["Education"] != 50 || committed["WorkExperience"] != 50 {
		t.Fatalf("unexpected committed weights: %v", committed)
	}

	if err := editor.Set("Education", 60); err != nil {
		t.Fatalf("set Education: %v", err)
	}
	if editor.State() != Editing {
		t.Fatalf("expected editing state, got %s", editor.State())
	}
	if !strings.Contains(editor.Message(), "must total 100%") {
		t.Fatalf("unexpected validation message: %q", editor.Message())
	}

	_, err = editor.Commit()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if math.Abs(validationErr.Sum-110) > 1e-9 {
		t.Fatalf("expected sum 110, got %v", validationErr.Sum)
	}

	if got := editor.Committed()["Education"]; got != 50 {
		t.Fatalf("blocked commit must not change committed weights, got %v", got)
	}
	if editor.Message() == "" {
		t.Fatal("expected validation message to remain after blocked commit")
	}
}

func TestEditorCancelRestoresCommitted(t *testing.T) {
	editor := NewEditor(nil, WeightSet{"Education": 50, "Skills": 50})

	if err := editor.Set("Skills", 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	editor.Cancel()

	if editor.State() != Committed {
		t.Fatalf("expected committed state after cancel, got %s", editor.State())
	}
	if editor.Draft()["Skills"] != 50 {
		t.Fatalf("expected draft to be restored, got %v", editor.Draft())
	}
}

func TestEditorReopen(t *testing.T) {
	editor := NewEditor(nil, WeightSet{"Education": 50, "Skills": 50})

	editor.Reopen()
	if editor.State() != Valid {
		t.Fatalf("expected valid state after reopen, got %s", editor.State())
	}

	if err := editor.Set("Skills", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	editor.Reopen()
	if editor.State() != Editing {
		t.Fatalf("reopen must not hide an invalid draft, got %s", editor.State())
	}
}

func TestDraftEditorCommitsNothingUpFront(t *testing.T) {
	editor := NewDraftEditor([]string{"Skills", "Education"}, WeightSet{"Education": 50, "Skills": 50})

	if editor.State() != Valid {
		t.Fatalf("expected valid state, got %s", editor.State())
	}
	if editor.Committed() != nil {
		t.Fatalf("expected no committed weights, got %v", editor.Committed())
	}

	if err := editor.Set("Skills", 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	editor.Cancel()
	if editor.Draft()["Skills"] != 50 || editor.State() != Valid {
		t.Fatalf("expected cancel to restore the proposal, got %v in %s", editor.Draft(), editor.State())
	}

	committed, err := editor.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if committed["Education"] != 50 || editor.State() != Committed {
		t.Fatalf("unexpected commit result %v in %s", committed, editor.State())
	}
}

func TestEditorRejectsInvalidEdits(t *testing.T) {
	editor := NewEditor(nil, WeightSet{"Education": 50, "Skills": 50})

	if err := editor.Set("Mission", 10); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected unknown section error, got %v", err)
	}
	if err := editor.Set("Skills", 120); err == nil {
		t.Fatal("expected range error")
	}
	if err := editor.Set("Skills", -1); err == nil {
		t.Fatal("expected range error")
	}
	if editor.State() != Committed {
		t.Fatalf("rejected edits must not change state, got %s", editor.State())
	}
}

func TestEditorStartsInEditingWithInvalidInitialWeights(t *testing.T) {
	editor := NewEditor([]string{"Skills", "Education"}, WeightSet{"Education": 10, "Skills": 10})

	if editor.State() != Editing {
		t.Fatalf("expected editing state, got %s", editor.State())
	}
	if editor.Committed() != nil {
		t.Fatalf("expected no committed weights, got %v", editor.Committed())
	}
	if sections := editor.Sections(); sections[0] != "Skills" || sections[1] != "Education" {
		t.Fatalf("unexpected section order: %v", sections)
	}

	editor.Cancel()
	if editor.State() != Editing {
		t.Fatalf("cancel without committed weights must keep editing, got %s", editor.State())
	}
}
