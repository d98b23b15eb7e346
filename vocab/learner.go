package vocab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/internal/kmeans"
)

// DefaultK is the default vocabulary size.
const DefaultK = 10

type learnerOptions struct {
	k      int
	kmeans kmeans.Options
	logger *slog.Logger
}

// LearnerOption configures a Learner.
type LearnerOption func(*learnerOptions)

// WithK sets the vocabulary size.
func WithK(k int) LearnerOption {
	return func(o *learnerOptions) {
		o.k = k
	}
}

// WithMaxIter caps Lloyd iterations per k-means run.
func WithMaxIter(n int) LearnerOption {
	return func(o *learnerOptions) {
		o.kmeans.MaxIter = n
	}
}

// WithNumInit sets the number of k-means restarts.
func WithNumInit(n int) LearnerOption {
	return func(o *learnerOptions) {
		o.kmeans.NumInit = n
	}
}

// WithSeed seeds k-means++ initialization.
func WithSeed(seed int64) LearnerOption {
	return func(o *learnerOptions) {
		o.kmeans.Seed = seed
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LearnerOption {
	return func(o *learnerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// LearnReport summarizes one Learn call.
type LearnReport struct {
	Rows       int
	K          int
	Iterations int
	Converged  bool
	Inertia    float64
	// EmptyClusters counts words no corpus row maps to.
	EmptyClusters int
	Duration      time.Duration
}

// Learner clusters the stored corpus into a vocabulary.
type Learner struct {
	corpus *corpus.Store
	store  *Store
	opts   learnerOptions
}

// NewLearner creates a Learner reading from corpusStore and writing to vocabStore.
func NewLearner(corpusStore *corpus.Store, vocabStore *Store, opts ...LearnerOption) (*Learner, error) {
	if corpusStore == nil || vocabStore == nil {
		return nil, errors.New("vocab: corpus and vocabulary stores are required")
	}

	o := learnerOptions{
		k:      DefaultK,
		kmeans: kmeans.DefaultOptions(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.k <= 0 {
		return nil, fmt.Errorf("vocab: %w: %d", kmeans.ErrInvalidK, o.k)
	}

	return &Learner{corpus: corpusStore, store: vocabStore, opts: o}, nil
}

// Learn loads the whole corpus, clusters its rows into K words and persists
// the vocabulary.
func (l *Learner) Learn(ctx context.Context) (*Vocabulary, *LearnReport, error) {
	lookup, err := l.corpus.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !lookup.Found {
		return nil, nil, ErrNoCorpus
	}
	c := lookup.Corpus

	start := time.Now()
	l.opts.logger.Info("start clustering",
		slog.Int("rows", c.Rows()),
		slog.Int("dim", c.Alpha),
		slog.Int("k", l.opts.k),
	)

	res, err := kmeans.Train(ctx, c.Features, c.Alpha, l.opts.k, l.opts.kmeans)
	if err != nil {
		return nil, nil, err
	}

	v, err := New(l.opts.k, c.Alpha, res.Centroids)
	if err != nil {
		return nil, nil, err
	}
	if err := l.store.Save(ctx, v); err != nil {
		return nil, nil, err
	}

	report := &LearnReport{
		Rows:          c.Rows(),
		K:             l.opts.k,
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		Inertia:       res.Inertia,
		EmptyClusters: res.EmptyClusters,
		Duration:      time.Since(start),
	}
	if report.EmptyClusters > 0 {
		l.opts.logger.Warn("fewer distinct clusters than k",
			slog.Int("k", report.K),
			slog.Int("distinct", report.K-report.EmptyClusters),
			slog.Int("empty", report.EmptyClusters),
		)
	}
	l.opts.logger.Info("clustering done",
		slog.Int("rows", report.Rows),
		slog.Int("k", report.K),
		slog.Int("iterations", report.Iterations),
		slog.Bool("converged", report.Converged),
		slog.Float64("inertia", report.Inertia),
		slog.Duration("duration", report.Duration),
	)
	return v, report, nil
}
