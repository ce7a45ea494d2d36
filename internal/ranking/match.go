package ranking

import (
	"path/filepath"
	"strings"
)

// CandidateMatch is one candidate's result inside a ranking batch.
type CandidateMatch struct {
	Identity string
	// Source is the filename reported by the matching service.
	Source        string
	SectionScores map[string]float64
	TotalScore    float64

	AlgorithmicDecision Decision
	FinalDecision       Decision
	// Overridden is set once a reviewer picks the final decision explicitly.
	Overridden bool
}

// NewCandidateMatch builds a match from the matching service output. The algorithmic
// decision is derived from the reported total and the final decision starts equal to it.
func NewCandidateMatch(source string, sectionScores map[string]float64, total float64) *CandidateMatch {
	scores := make(map[string]float64, len(sectionScores))
	for k, v := range sectionScores {
		scores[k] = v
	}

	decision := DecisionFor(total)
	return &CandidateMatch{
		Identity:            IdentityFromFilename(source),
		Source:              source,
		SectionScores:       scores,
		TotalScore:          total,
		AlgorithmicDecision: decision,
		FinalDecision:       decision,
	}
}

// IdentityFromFilename strips directories and the extension from a source filename.
func IdentityFromFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Score returns a section score and whether the candidate has it.
func (c *CandidateMatch) Score(section string) (float64, bool) {
	v, ok := c.SectionScores[section]
	return v, ok
}

func (c *CandidateMatch) clone() *CandidateMatch {
	cp := *c
	cp.SectionScores = make(map[string]float64, len(c.SectionScores))
	for k, v := range c.SectionScores {
		cp.SectionScores[k] = v
	}
	return &cp
}
