// Package session holds the reviewer's state: the current ranking batch, the
// table view over it, the weight editor and the error banner. Every mutation
// goes through a named handler that takes the session lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/export"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/ranking"
	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/table"
)

var (
	ErrClosed = errors.New("session closed")
	// ErrStale is returned when a newer load was applied before this response arrived.
	ErrStale = errors.New("stale ranking response dropped")
)

type Fetcher interface {
	FetchRanking(ctx context.Context) (*ranking.Batch, error)
}

type Uploader interface {
	UploadDocuments(ctx context.Context, docs []backend.Document) (*backend.UploadResult, error)
}

type Options struct {
	PageSize int
	// Weights are applied to every batch whose sections they cover exactly.
	// Nil keeps the totals computed by the matching service.
	Weights scoring.WeightSet
	Logger  *zap.Logger
}

type Session struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	fetcher  Fetcher
	uploader Uploader

	view    *table.View
	editor  *scoring.Editor
	weights scoring.WeightSet
	banner  string

	generation uint64
	applied    uint64
	closed     bool
}

func New(fetcher Fetcher, uploader Uploader, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	empty, _ := ranking.NewBatch("", nil, nil)
	s := &Session{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.WithFields(opts.Logger),
		fetcher:  fetcher,
		uploader: uploader,
		view:     table.New(empty, opts.PageSize),
	}
	if opts.Weights != nil {
		s.weights = opts.Weights.Clone()
	}
	s.syncEditor(nil)

	return s
}

// Load fetches the latest batch and merges it into the session.
func (s *Session) Load(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("no ranking source configured")
	}

	gen, ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	batch, err := s.fetcher.FetchRanking(ctx)
	return s.apply(gen, batch, err)
}

// Upload sends documents for matching and reloads the ranking when at least
// one of them was accepted. Failed files are named in the banner.
func (s *Session) Upload(ctx context.Context, docs []backend.Document) (*backend.UploadResult, error) {
	if s.uploader == nil {
		return nil, errors.New("no upload target configured")
	}

	gen, uctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.uploader.UploadDocuments(uctx, docs)
	done()
	if err != nil {
		err = fmt.Errorf("upload failed: %w", err)
		s.fail(gen, err)
		return nil, err
	}

	if len(result.Succeeded()) > 0 {
		if err := s.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
			return result, err
		}
	}

	if failed := result.Failed(); len(failed) > 0 {
		s.mu.Lock()
		if !s.closed {
			s.banner = failureBanner(failed)
		}
		s.mu.Unlock()
	}

	return result, nil
}

func failureBanner(failed []backend.FileStatus) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		if f.Message != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.Filename, f.Message))
		} else {
			parts = append(parts, f.Filename)
		}
	}
	return "failed to process: " + strings.Join(parts, ", ")
}

// begin issues a generation and a context that is cancelled on Close.
func (s *Session) begin(ctx context.Context) (uint64, context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, nil, ErrClosed
	}

	s.generation++
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	return s.generation, ctx, func() {
		stop()
		cancel()
	}, nil
}

func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen <= s.applied {
		return
	}
	s.banner = err.Error()
	s.logger.Warn("request failed", zap.Error(err))
}

func (s *Session) apply(gen uint64, incoming *ranking.Batch, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug("dropping ranking received after close")
		return ErrClosed
	}
	if gen <= s.applied {
		s.logger.Debug("dropping stale ranking", zap.Uint64("generation", gen), zap.Uint64("applied", s.applied))
		return ErrStale
	}

	if err != nil {
		var schemaErr *ranking.SchemaError
		if errors.As(err, &schemaErr) {
			s.banner = fmt.Sprintf("ranking rejected, keeping previous results: %v", err)
		} else {
			s.banner = fmt.Sprintf("could not load ranking: %v", err)
		}
		s.logger.Warn("load failed", zap.Error(err))
		return err
	}

	s.applied = gen
	previous := s.view.Batch()
	kept := incoming.KeepReviews(previous)

	s.syncEditor(incoming.Sections)
	if s.weights != nil && coversExactly(s.weights, incoming.Sections) {
		scoring.Recompute(incoming, s.weights)
	}

	s.view.SetBatch(incoming)
	s.banner = ""

	s.logger.Info("ranking loaded",
		append(logger.BatchFields(incoming), zap.Strings("kept_reviews", kept))...,
	)
	return nil
}

// syncEditor rebuilds the weight editor when the section schema changes.
// Without session weights for the new schema the service totals stay in
// effect, so equal weights are offered as a draft and nothing is committed.
func (s *Session) syncEditor(sections []string) {
	if s.editor != nil && coversExactly(s.editor.Draft(), sections) {
		return
	}

	if s.weights != nil && coversExactly(s.weights, sections) {
		s.editor = scoring.NewEditor(sections, s.weights)
		return
	}
	s.editor = scoring.NewDraftEditor(sections, scoring.EqualWeights(sections))
}

func coversExactly(weights scoring.WeightSet, sections []string) bool {
	if len(weights) != len(sections) {
		return false
	}
	for _, s := range sections {
		if _, ok := weights[s]; !ok {
			return false
		}
	}
	return true
}

// locked runs fn under the session lock unless the session is closed.
func (s *Session) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return fn()
}

// EditWeight changes one draft weight. An invalid total does not fail here; it
// is reported by WeightState and blocks CommitWeights.
func (s *Session) EditWeight(section string, value float64) error {
	return s.locked(func() error {
		return s.editor.Set(section, value)
	})
}

// CommitWeights applies the draft weights to the current batch.
func (s *Session) CommitWeights() error {
	return s.locked(func() error {
		weights, err := s.editor.Commit()
		if err != nil {
			return err
		}

		s.weights = weights
		scoring.Recompute(s.view.Batch(), weights)
		s.logger.Info("weights committed",
			append(logger.BatchFields(s.view.Batch()), zap.Any("weights", map[string]float64(weights)))...,
		)
		return nil
	})
}

// ReopenWeights starts a new editing round from the committed weights.
func (s *Session) ReopenWeights() error {
	return s.locked(func() error {
		s.editor.Reopen()
		return nil
	})
}

func (s *Session) CancelWeights() error {
	return s.locked(func() error {
		s.editor.Cancel()
		return nil
	})
}

// WeightState is a snapshot of the weight editor.
type WeightState struct {
	Sections []string
	Draft    scoring.WeightSet
	Sum      float64
	State    scoring.State
	Message  string

	// ServiceTotals is true while the displayed totals are the ones computed
	// by the matching service rather than by committed weights.
	ServiceTotals bool
}

func (s *Session) WeightState() WeightState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return WeightState{
		Sections: s.editor.Sections(),
		Draft:    s.editor.Draft(),
		Sum:      s.editor.Sum(),
		State:    s.editor.State(),
		Message:  s.editor.Message(),

		ServiceTotals: s.editor.Committed() == nil,
	}
}

func (s *Session) Sort(key string) error {
	return s.locked(func() error { return s.view.Sort(key) })
}

func (s *Session) Filter(f table.Filter) error {
	return s.locked(func() error { return s.view.SetFilter(f) })
}

func (s *Session) StageColumns(columns []string) error {
	return s.locked(func() error { return s.view.StageColumns(columns) })
}

func (s *Session) ApplyColumns() error {
	return s.locked(func() error {
		s.view.ApplyColumns()
		return nil
	})
}

func (s *Session) CancelColumns() error {
	return s.locked(func() error {
		s.view.CancelColumns()
		return nil
	})
}

func (s *Session) Page(page int) error {
	return s.locked(func() error { return s.view.SetPage(page) })
}

func (s *Session) NextPage() error {
	return s.locked(s.view.NextPage)
}

func (s *Session) PrevPage() error {
	return s.locked(s.view.PrevPage)
}

// Override records the reviewer's final decision for a candidate.
func (s *Session) Override(identity string, decision ranking.Decision) error {
	return s.locked(func() error {
		if err := s.view.Override(identity, decision); err != nil {
			return err
		}
		s.logger.Info("decision overridden",
			append(logger.CandidateFields(s.view.Batch(), identity), zap.Stringer("decision", decision))...,
		)
		return nil
	})
}

// Export writes every filtered row with the visible columns to path.
func (s *Session) Export(path, sheet string) error {
	return s.locked(func() error {
		if err := export.ToFile(path, export.FromView(s.view), sheet); err != nil {
			return fmt.Errorf("export ranking: %w", err)
		}
		s.logger.Info("ranking exported", append(logger.BatchFields(s.view.Batch()), zap.String("path", path))...)
		return nil
	})
}

func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

func (s *Session) DismissBanner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = ""
}

// Render prints the current page of the table.
func (s *Session) Render(w io.Writer, r *table.Renderer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Render(w, s.view)
}

// Snapshot returns a deep copy of the batch under review.
func (s *Session) Snapshot() *ranking.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Batch().Clone()
}

// Inspect runs fn with the view under the session lock. fn must not keep the view.
func (s *Session) Inspect(fn func(v *table.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.view)
}

// Close cancels in-flight requests. Responses that arrive later are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}
