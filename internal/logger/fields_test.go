package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-ranker/internal/ranking"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if ctx := entries[0].ContextMap(); ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	enriched.Info("another log")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("test log")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field to be gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "model-x" {
		t.Fatalf("expected model field to be model-x, got %q", ctx[FieldModel])
	}

	if empty := CommonFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestCandidateFields(t *testing.T) {
	batch, err := ranking.NewBatch("", nil, []*ranking.CandidateMatch{
		ranking.NewCandidateMatch("alice.pdf", map[string]float64{"Skills": 90}, 90),
	})
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	core, observed := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("override", CandidateFields(batch, "alice")...)

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldBatch] != batch.ID {
		t.Fatalf("expected batch id %q, got %v", batch.ID, ctx[FieldBatch])
	}
	if ctx[FieldCandidates] != int64(1) {
		t.Fatalf("expected 1 candidate, got %v", ctx[FieldCandidates])
	}
	if ctx[FieldIdentity] != "alice" {
		t.Fatalf("expected identity alice, got %v", ctx[FieldIdentity])
	}

	if fields := BatchFields(nil); fields != nil {
		t.Fatalf("expected no fields for nil batch, got %v", fields)
	}
}
