// Package localmatch scores uploaded résumés with a local AI scorer instead of
// the matching backend. Results are kept in a JSON file shaped like the
// backend's ranking response.
package localmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-ranker/internal/ai"
	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/ranking"
	"github.com/spigell/cv-ranker/internal/scoring"
)

// DefaultSections are the sections scored when none are configured.
var DefaultSections = []string{"Education", "Work Experience", "Skills", "Mission"}

type Options struct {
	ResultsFile    string
	JobDescription backend.Document
	Sections       []string
	// Weights compute the stored total score. Equal weights are used when nil.
	Weights     scoring.WeightSet
	Concurrency int
	Logger      *zap.Logger
}

type Service struct {
	scorer      ai.Scorer
	resultsFile string
	job         ai.Document
	sections    []string
	weights     scoring.WeightSet
	concurrency int
	logger      *zap.Logger

	mu sync.Mutex
}

func New(scorer ai.Scorer, opts Options) (*Service, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if opts.ResultsFile == "" {
		return nil, errors.New("results file is required")
	}
	if len(opts.JobDescription.Content) == 0 {
		return nil, errors.New("job description is empty")
	}

	sections := opts.Sections
	if len(sections) == 0 {
		sections = DefaultSections
	}

	weights := opts.Weights
	if weights == nil {
		weights = scoring.EqualWeights(sections)
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	return &Service{
		scorer:      scorer,
		resultsFile: opts.ResultsFile,
		job:         toAI(opts.JobDescription),
		sections:    slices.Clone(sections),
		weights:     weights.Clone(),
		concurrency: concurrency,
		logger:      logger.WithFields(opts.Logger),
	}, nil
}

func toAI(doc backend.Document) ai.Document {
	return ai.Document{Name: doc.Filename, Content: doc.Content, MIMEType: doc.Type}
}

// FetchRanking reads the stored results. A missing results file is an empty batch.
func (s *Service) FetchRanking(ctx context.Context) (*ranking.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.read()
	if err != nil {
		return nil, err
	}
	return results.ToBatch()
}

// UploadDocuments scores every document concurrently and stores the ones that
// were scored. A failed document does not stop the others.
func (s *Service) UploadDocuments(ctx context.Context, docs []backend.Document) (*backend.UploadResult, error) {
	if len(docs) == 0 {
		return nil, backend.ErrNoDocuments
	}

	entries := make([]*backend.RankingEntry, len(docs))
	statuses := make([]backend.FileStatus, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			statuses[i] = backend.FileStatus{Filename: doc.Filename}

			assessment, err := s.scorer.Score(gctx, s.job, toAI(doc), s.sections)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				statuses[i].Message = err.Error()
				s.logger.Warn("document scoring failed", zap.String(logger.FieldIdentity, doc.Filename), zap.Error(err))
				return nil
			}

			entries[i] = &backend.RankingEntry{
				Resume:        doc.Filename,
				TotalScore:    scoring.Aggregate(assessment.Scores, s.weights),
				SectionScores: backend.NewOrderedScores(s.sections, assessment.Scores),
			}
			statuses[i].Success = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var scored []backend.RankingEntry
	for _, e := range entries {
		if e != nil {
			scored = append(scored, *e)
		}
	}

	if len(scored) > 0 {
		if err := s.store(scored); err != nil {
			return nil, err
		}
	}

	result := &backend.UploadResult{Success: len(scored) == len(docs), Files: statuses}
	s.logger.Info("documents scored locally",
		zap.Int("scored", len(scored)),
		zap.Int("failed", len(docs)-len(scored)),
	)
	return result, nil
}

// store merges entries into the results file, replacing candidates with the same identity.
func (s *Service) store(entries []backend.RankingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.read()
	if err != nil {
		return err
	}
	results.JobDescription = s.job.Name

	index := make(map[string]int, len(results.Ranking))
	for i, e := range results.Ranking {
		index[ranking.IdentityFromFilename(e.Resume)] = i
	}
	for _, e := range entries {
		if i, ok := index[ranking.IdentityFromFilename(e.Resume)]; ok {
			results.Ranking[i] = e
			continue
		}
		index[ranking.IdentityFromFilename(e.Resume)] = len(results.Ranking)
		results.Ranking = append(results.Ranking, e)
	}

	return s.write(results)
}

func (s *Service) read() (*backend.RankingResponse, error) {
	data, err := os.ReadFile(s.resultsFile)
	if errors.Is(err, os.ErrNotExist) {
		return &backend.RankingResponse{Ranking: []backend.RankingEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	var results backend.RankingResponse
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", s.resultsFile, err)
	}
	return &results, nil
}

// write replaces the results file atomically.
func (s *Service) write(results *backend.RankingResponse) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	dir := filepath.Dir(s.resultsFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("create temp results: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	return os.Rename(tmp.Name(), s.resultsFile)
}
