package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/imageio"
	"github.com/hupe1980/bovw/internal/parallel"
	"github.com/hupe1980/bovw/internal/progress"
	"github.com/rs/xid"
)

// ImageObserver is called once per processed image from worker goroutines.
// err is nil on success. Implementations must be safe for concurrent use.
type ImageObserver func(path string, elapsed time.Duration, err error)

type aggregatorOptions struct {
	workers          int
	skipFailed       bool
	strictPrior      bool
	logger           *slog.Logger
	progress         io.Writer
	progressInterval time.Duration
	observer         ImageObserver
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*aggregatorOptions)

// WithWorkers sets the number of concurrent extractions.
// n <= 0 uses one worker per CPU.
func WithWorkers(n int) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.workers = n
	}
}

// WithSkipFailed skips images that fail to load instead of aborting the batch.
// Skipped images and their labels are excluded from the corpus.
func WithSkipFailed() AggregatorOption {
	return func(o *aggregatorOptions) {
		o.skipFailed = true
	}
}

// WithStrictPrior makes an unreadable prior corpus an error instead of
// starting a fresh corpus.
func WithStrictPrior() AggregatorOption {
	return func(o *aggregatorOptions) {
		o.strictPrior = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(o *aggregatorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress sets the writer receiving one marker per completed image.
func WithProgress(w io.Writer) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.progress = w
	}
}

// WithProgressInterval sets the minimum time between progress log lines.
func WithProgressInterval(d time.Duration) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.progressInterval = d
	}
}

// WithImageObserver registers a per-image callback.
func WithImageObserver(fn ImageObserver) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.observer = fn
	}
}

// Report summarizes one Aggregate call.
type Report struct {
	BatchID     xid.ID
	Images      int
	Rows        int
	TotalImages int
	TotalRows   int
	// Skipped holds the batch indices of images dropped under WithSkipFailed.
	Skipped    *roaring.Bitmap
	Duration   time.Duration
	PriorFound bool
}

// Aggregator extracts tensors for labelled image batches and merges them
// into the persisted corpus.
type Aggregator struct {
	extractor *feature.Extractor
	loader    imageio.Loader
	store     *Store
	opts      aggregatorOptions
}

// NewAggregator creates an Aggregator.
func NewAggregator(extractor *feature.Extractor, loader imageio.Loader, store *Store, opts ...AggregatorOption) (*Aggregator, error) {
	if extractor == nil || loader == nil || store == nil {
		return nil, errors.New("corpus: extractor, loader and store are required")
	}

	o := aggregatorOptions{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		progress:         io.Discard,
		progressInterval: progress.DefaultInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Aggregator{
		extractor: extractor,
		loader:    loader,
		store:     store,
		opts:      o,
	}, nil
}

// Aggregate extracts every image of the batch, appends the rows and labels
// to the stored corpus in submission order and writes the result back.
//
// On any error the stored corpus is left unchanged.
func (a *Aggregator) Aggregate(ctx context.Context, paths []string, labels []int64) (*Report, error) {
	if len(paths) != len(labels) {
		return nil, &LabelCountError{Paths: len(paths), Labels: len(labels)}
	}
	if len(paths) == 0 {
		return nil, ErrEmptyBatch
	}

	start := time.Now()
	report := &Report{BatchID: xid.New(), Skipped: roaring.New()}
	logger := a.opts.logger.With(slog.String("batch_id", report.BatchID.String()))

	logger.Info("aggregating batch",
		slog.Int("images", len(paths)),
		slog.Int("workers", parallel.Workers(a.opts.workers)),
	)

	tensors, errs, err := a.extractAll(ctx, logger, paths)
	if err != nil {
		return nil, err
	}

	batch := New(a.extractor.Alpha(), feature.PatchSize*feature.PatchSize)
	var lastErr error
	for i, t := range tensors {
		if t == nil {
			report.Skipped.Add(uint32(i))
			lastErr = errs[i]
			continue
		}
		if err := batch.AddImage(t, labels[i]); err != nil {
			return nil, err
		}
	}
	if batch.Images() == 0 {
		return nil, fmt.Errorf("%w: all %d images failed: %w", ErrEmptyBatch, len(paths), lastErr)
	}
	batch.Batches = []int64{int64(batch.Images())}

	merged, found, err := a.merge(ctx, logger, batch)
	if err != nil {
		return nil, err
	}

	if err := a.store.Save(ctx, merged); err != nil {
		return nil, err
	}

	report.Images = batch.Images()
	report.Rows = batch.Rows()
	report.TotalImages = merged.Images()
	report.TotalRows = merged.Rows()
	report.PriorFound = found
	report.Duration = time.Since(start)

	logger.Info("batch aggregated",
		slog.Int("images", report.Images),
		slog.Int("skipped", int(report.Skipped.GetCardinality())),
		slog.Int("total_images", report.TotalImages),
		slog.Int("total_rows", report.TotalRows),
		slog.Bool("prior_found", found),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// extractAll returns one tensor per path, in input order. Under skip-and-log
// a failed image yields a nil tensor and its error in errs.
func (a *Aggregator) extractAll(ctx context.Context, logger *slog.Logger, paths []string) ([]*feature.Tensor, []error, error) {
	reporter := progress.New(len(paths),
		progress.WithWriter(a.opts.progress),
		progress.WithLogger(logger),
		progress.WithInterval(a.opts.progressInterval),
	)
	errs := make([]error, len(paths))

	tensors, err := parallel.Map(ctx, paths, a.opts.workers, func(ctx context.Context, i int, path string) (*feature.Tensor, error) {
		begin := time.Now()
		img, err := a.loader.Load(ctx, path)
		if err != nil {
			err = &ImageError{Index: i, Path: path, Err: err}
			if a.opts.observer != nil {
				a.opts.observer(path, time.Since(begin), err)
			}
			reporter.Failed()
			if a.opts.skipFailed && ctx.Err() == nil {
				logger.Warn("skipping image", slog.Int("index", i), slog.String("path", path), slog.Any("error", err))
				errs[i] = err
				return nil, nil
			}
			return nil, err
		}

		t := a.extractor.Extract(img)
		if a.opts.observer != nil {
			a.opts.observer(path, time.Since(begin), nil)
		}
		reporter.Done()
		return t, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tensors, errs, nil
}

func (a *Aggregator) merge(ctx context.Context, logger *slog.Logger, batch *Corpus) (*Corpus, bool, error) {
	prior, err := a.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnreadable) || a.opts.strictPrior {
			return nil, false, err
		}
		logger.Warn("prior corpus unreadable, starting fresh", slog.Any("error", err))
		return batch, false, nil
	}
	if !prior.Found {
		return batch, false, nil
	}

	merged := prior.Corpus
	if err := merged.Append(batch); err != nil {
		return nil, true, err
	}
	return merged, true, nil
}
