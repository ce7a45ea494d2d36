package ranking

import (
	"errors"
	"testing"
)

func TestDecisionFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total  float64
		expect Decision
	}{
		{total: 100, expect: Accepted},
		{total: 85, expect: Accepted},
		{total: 84.99, expect: Pending},
		{total: 70, expect: Pending},
		{total: 69.9, expect: Shortlisted},
		{total: 0, expect: Shortlisted},
	}

	for _, tt := range tests {
		if got := DecisionFor(tt.total); got != tt.expect {
			t.Fatalf("DecisionFor(%v): expected %s, got %s", tt.total, tt.expect, got)
		}
	}
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("  accepted ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != Accepted {
		t.Fatalf("expected Accepted, got %s", d)
	}

	if _, err := ParseDecision("rejected"); err == nil {
		t.Fatal("expected error for unknown decision")
	}
}

func TestIdentityFromFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"resume1.json":            "resume1",
		"Jane Doe.pdf":            "Jane Doe",
		"uploads/john.smith.docx": "john.smith",
		"noext":                   "noext",
		"":                        "",
	}

	for input, expect := range tests {
		if got := IdentityFromFilename(input); got != expect {
			t.Fatalf("IdentityFromFilename(%q): expected %q, got %q", input, expect, got)
		}
	}
}

func TestNewBatchDiscoversSchemaFromFirstRow(t *testing.T) {
	items := []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 60, "Education": 80}, 72),
		NewCandidateMatch("b.json", map[string]float64{"Education": 50, "Skills": 90}, 66),
	}

	batch, err := NewBatch("job.json", nil, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batch.Sections) != 2 || batch.Sections[0] != "Education" || batch.Sections[1] != "Skills" {
		t.Fatalf("unexpected schema: %v", batch.Sections)
	}
	if batch.ID == "" {
		t.Fatal("expected batch id to be generated")
	}
}

func TestNewBatchRejectsHeterogeneousRows(t *testing.T) {
	items := []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Education": 80, "Skills": 60}, 72),
		NewCandidateMatch("b.json", map[string]float64{"Education": 50, "Mission": 90}, 66),
	}

	_, err := NewBatch("", []string{"Education", "Skills"}, items)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if schemaErr.Identity != "b" {
		t.Fatalf("unexpected identity: %q", schemaErr.Identity)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "Skills" {
		t.Fatalf("unexpected missing sections: %v", schemaErr.Missing)
	}
	if len(schemaErr.Extra) != 1 || schemaErr.Extra[0] != "Mission" {
		t.Fatalf("unexpected extra sections: %v", schemaErr.Extra)
	}
}

func TestNewBatchRejectsDuplicateIdentity(t *testing.T) {
	items := []*CandidateMatch{
		NewCandidateMatch("a.pdf", map[string]float64{"Skills": 60}, 60),
		NewCandidateMatch("a.docx", map[string]float64{"Skills": 70}, 70),
	}

	if _, err := NewBatch("", nil, items); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate identity error, got %v", err)
	}
}

func TestOverrideKeepsAlgorithmicDecision(t *testing.T) {
	batch, err := NewBatch("", nil, []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 60}, 60),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := batch.Override("a", Accepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := batch.Find("a")
	if item.FinalDecision != Accepted {
		t.Fatalf("expected final decision Accepted, got %s", item.FinalDecision)
	}
	if item.AlgorithmicDecision != Shortlisted {
		t.Fatalf("expected algorithmic decision to stay Shortlisted, got %s", item.AlgorithmicDecision)
	}
	if item.SectionScores["Skills"] != 60 || item.TotalScore != 60 {
		t.Fatalf("scores must not change on override: %+v", item)
	}

	if err := batch.Override("missing", Accepted); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("expected unknown identity error, got %v", err)
	}
	if err := batch.Override("a", Decision("Maybe")); err == nil {
		t.Fatal("expected invalid decision error")
	}
}

func TestKeepReviewsPreservesOnlyReviewerDecisions(t *testing.T) {
	prev, _ := NewBatch("", nil, []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 60}, 60),
		NewCandidateMatch("b.json", map[string]float64{"Skills": 90}, 90),
	})
	if err := prev.Override("a", Accepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, _ := NewBatch("", nil, []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 75}, 75),
		NewCandidateMatch("b.json", map[string]float64{"Skills": 72}, 72),
		NewCandidateMatch("c.json", map[string]float64{"Skills": 88}, 88),
	})

	kept := next.KeepReviews(prev)
	if len(kept) != 1 || kept[0] != "a" {
		t.Fatalf("unexpected kept identities: %v", kept)
	}

	a := next.Find("a")
	if a.FinalDecision != Accepted || a.AlgorithmicDecision != Pending || a.TotalScore != 75 {
		t.Fatalf("unexpected merged candidate a: %+v", a)
	}

	b := next.Find("b")
	if b.FinalDecision != Pending || b.Overridden {
		t.Fatalf("candidate b should follow the new algorithmic decision: %+v", b)
	}
}

func TestSummaryCountsFinalDecisions(t *testing.T) {
	batch, _ := NewBatch("", nil, []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 90}, 90),
		NewCandidateMatch("b.json", map[string]float64{"Skills": 72}, 72),
		NewCandidateMatch("c.json", map[string]float64{"Skills": 10}, 10),
	})
	_ = batch.Override("c", Accepted)

	summary := batch.Summary()
	if summary[Accepted] != 2 || summary[Pending] != 1 || summary[Shortlisted] != 0 {
		t.Fatalf("unexpected summary: %v", summary)
	}
}

func TestCloneIsDeep(t *testing.T) {
	batch, _ := NewBatch("", nil, []*CandidateMatch{
		NewCandidateMatch("a.json", map[string]float64{"Skills": 90}, 90),
	})

	cp := batch.Clone()
	cp.Items[0].SectionScores["Skills"] = 1
	cp.Sections[0] = "Other"

	if batch.Items[0].SectionScores["Skills"] != 90 || batch.Sections[0] != "Skills" {
		t.Fatal("clone shares state with the original batch")
	}
}
