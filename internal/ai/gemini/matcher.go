package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-ranker/internal/ai"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string, attachments ...*genai.Part) (string, error)
}

// Matcher scores résumés section by section with Gemini.
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxScore            = 100
)

var ErrMissingSection = errors.New("model response misses a section score")

func NewMatcher(generator contentGenerator, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) Score(ctx context.Context, jobDescription, resume ai.Document, sections []string) (*ai.SectionAssessment, error) {
	if len(jobDescription.Content) == 0 {
		return nil, errors.New("job description is empty")
	}
	if len(resume.Content) == 0 {
		return nil, fmt.Errorf("resume %q is empty", resume.Name)
	}
	if len(sections) == 0 {
		return nil, errors.New("no sections to score")
	}

	system := buildPrompt(sections)
	message := fmt.Sprintf("Job description: %s\nRésumé: %s\nReturn the JSON scores.", jobDescription.Name, resume.Name)

	m.logger.Debug("gemini generate content request",
		zap.String(logger.FieldIdentity, resume.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(system)),
		zap.String("prompt_preview", util.TruncateForLog(system, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, system, message, attachment(jobDescription), attachment(resume))
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String(logger.FieldIdentity, resume.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw, sections)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", resume.Name, err)
	}

	assessment.Raw = raw
	return assessment, nil
}

// attachment sends text documents as text and everything else as inline bytes.
func attachment(doc ai.Document) *genai.Part {
	mime := strings.TrimSpace(doc.MIMEType)
	if mime == "" {
		mime = "application/octet-stream"
	}
	if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, jsonMIMEType) {
		return genai.NewPartFromText(string(doc.Content))
	}
	return genai.NewPartFromBytes(doc.Content, mime)
}

func buildPrompt(sections []string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Score the résumé against the job description, 0 to 100 per section:\n{{SECTIONS}}\n\nJSON Response:"
	}

	lines := make([]string, 0, len(sections))
	for _, s := range sections {
		lines = append(lines, "- "+s)
	}
	return strings.ReplaceAll(template, "{{SECTIONS}}", strings.Join(lines, "\n"))
}

func parseResponse(raw string, sections []string) (*ai.SectionAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	rawScores, ok := data["scores"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse gemini response: %q is not an object", "scores")
	}

	// Models drift on key case, so match section names case-insensitively.
	byName := make(map[string]any, len(rawScores))
	for k, v := range rawScores {
		byName[strings.ToLower(strings.TrimSpace(k))] = v
	}

	scores := make(map[string]float64, len(sections))
	for _, section := range sections {
		v, ok := byName[strings.ToLower(section)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingSection, section)
		}
		score := coerceFloat(v)
		if math.IsNaN(score) {
			return nil, fmt.Errorf("section %q has no numeric score", section)
		}
		scores[section] = math.Max(0, math.Min(maxScore, score))
	}

	return &ai.SectionAssessment{
		Scores:  scores,
		Summary: coerceString(data["summary"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
