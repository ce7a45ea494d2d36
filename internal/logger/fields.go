package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/ranking"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldBatch      = "batch_id"
	FieldIdentity   = "identity"
	FieldSection    = "section"
	FieldCandidates = "candidates"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields describes the AI provider and model. Empty values are ignored.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// BatchFields describes a ranking batch: its id and candidate count.
func BatchFields(batch *ranking.Batch) []zap.Field {
	if batch == nil {
		return nil
	}

	fields := StringFields(StringField{Key: FieldBatch, Value: batch.ID})
	return append(fields, zap.Int(FieldCandidates, batch.Len()))
}

// CandidateFields describes one candidate of a batch.
func CandidateFields(batch *ranking.Batch, identity string) []zap.Field {
	fields := BatchFields(batch)
	return append(fields, StringFields(StringField{Key: FieldIdentity, Value: identity})...)
}
