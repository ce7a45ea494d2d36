package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spigell/cv-ranker/internal/backend"
)

func TestWriteOffers(t *testing.T) {
	var buf bytes.Buffer
	err := writeOffers(&buf, []backend.StoredJobOffer{
		{ID: "job-2", JobOffer: backend.JobOffer{Title: "SRE", Positions: 1}},
		{ID: "job-1", JobOffer: backend.JobOffer{Title: "Go Developer", Positions: 2}, HasCVs: true},
	})
	if err != nil {
		t.Fatalf("write offers: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"job-2", "SRE", "job-1", "Go Developer", "yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "job-2") > strings.Index(out, "job-1") {
		t.Fatalf("expected service order to be kept:\n%s", out)
	}
}

func TestWriteOffersEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOffers(&buf, nil); err != nil {
		t.Fatalf("write offers: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No job offers" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWriteOffer(t *testing.T) {
	var buf bytes.Buffer
	err := writeOffer(&buf, &backend.StoredJobOffer{
		ID: "job-1",
		JobOffer: backend.JobOffer{
			Title:   "Go Developer",
			Skills:  []string{"Go", "SQL"},
			Weights: backend.OfferWeights{Experience: 40, JobDescription: 10, Education: 20, Skills: 30},
		},
		CVFiles: []string{"job-1_alice.pdf"},
	})
	if err != nil {
		t.Fatalf("write offer: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"job-1", "Go, SQL", "job-1_alice.pdf", "40.00%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
