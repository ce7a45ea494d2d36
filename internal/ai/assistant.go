package ai

import (
	"context"
)

// Document is a file handed to a model as an attachment.
type Document struct {
	Name     string
	Content  []byte
	MIMEType string
}

// SectionAssessment is a model's per-section verdict on one résumé.
type SectionAssessment struct {
	Scores  map[string]float64
	Summary string
	Raw     string
}

// Scorer rates a résumé against a job description on every requested section,
// each from 0 to 100.
type Scorer interface {
	Score(ctx context.Context, jobDescription, resume Document, sections []string) (*SectionAssessment, error)
}
