package bovw

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/config"
	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/imageio"
	"github.com/hupe1980/bovw/vocab"
)

// Pipeline ties the extractor, the aggregator, the learner and the word
// assigner to one configuration and one artifact store.
//
// A Pipeline is safe for concurrent use, but concurrent Aggregate calls
// against the same store race on the corpus artifact. Serialize them.
type Pipeline struct {
	cfg         config.Config
	opts        options
	blobs       blobstore.Store
	loader      imageio.Loader
	compression archive.Compression

	extractor  *feature.Extractor
	corpus     *corpus.Store
	vocab      *vocab.Store
	aggregator *corpus.Aggregator
	learner    *vocab.Learner
}

// New creates a Pipeline. The configuration is validated and copied.
func New(cfg config.Config, optFns ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)

	extractor, err := feature.NewExtractor(cfg.ExtractorParams())
	if err != nil {
		return nil, translateError(err)
	}

	blobs := o.store
	if blobs == nil {
		blobs = blobstore.NewLocalStore(cfg.FeatDir)
	}
	loader := o.loader
	if loader == nil {
		loader = imageio.NewFileLoader(cfg.DataDir, image.Point{X: cfg.ImageSize[1], Y: cfg.ImageSize[0]})
	}
	compression := cfg.CompressionType()
	if o.compression != nil {
		compression = *o.compression
	}
	workers := cfg.Workers
	if o.workers != nil {
		workers = *o.workers
	}

	corpusStore := corpus.NewStore(blobs, corpus.WithCompression(compression))
	vocabStore := vocab.NewStore(blobs, vocab.WithCompression(compression))

	aggOpts := []corpus.AggregatorOption{
		corpus.WithWorkers(workers),
		corpus.WithLogger(o.logger.Logger),
		corpus.WithImageObserver(func(_ string, elapsed time.Duration, err error) {
			o.metricsCollector.RecordImage(elapsed, err)
		}),
	}
	if o.skipFailed {
		aggOpts = append(aggOpts, corpus.WithSkipFailed())
	}
	if o.strictPrior {
		aggOpts = append(aggOpts, corpus.WithStrictPrior())
	}
	if o.progress != nil {
		aggOpts = append(aggOpts, corpus.WithProgress(o.progress))
	}
	aggregator, err := corpus.NewAggregator(extractor, loader, corpusStore, aggOpts...)
	if err != nil {
		return nil, err
	}

	learner, err := vocab.NewLearner(corpusStore, vocabStore,
		vocab.WithK(cfg.K),
		vocab.WithMaxIter(cfg.MaxIter),
		vocab.WithNumInit(cfg.NumInit),
		vocab.WithSeed(cfg.Seed),
		vocab.WithLogger(o.logger.Logger),
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &Pipeline{
		cfg:         cfg,
		opts:        o,
		blobs:       blobs,
		loader:      loader,
		compression: compression,
		extractor:   extractor,
		corpus:      corpusStore,
		vocab:       vocabStore,
		aggregator:  aggregator,
		learner:     learner,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Store returns the artifact store.
func (p *Pipeline) Store() blobstore.Store { return p.blobs }

// Compression returns the artifact compression.
func (p *Pipeline) Compression() archive.Compression { return p.compression }

// Extract describes a decoded image as an H×W×alpha tensor.
func (p *Pipeline) Extract(img *imageio.Image) *feature.Tensor {
	return p.extractor.Extract(img)
}

// ExtractFile loads and describes the image at path.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (*feature.Tensor, error) {
	img, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.extractor.Extract(img), nil
}

// Keypoints loads the image at path and returns its corner peaks in channel
// order. Only the first Alpha of them feed the descriptor.
func (p *Pipeline) Keypoints(ctx context.Context, path string) ([]feature.Keypoint, error) {
	img, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.extractor.Keypoints(img), nil
}

// Aggregate describes a labelled batch of images and appends it to the
// stored corpus in submission order.
func (p *Pipeline) Aggregate(ctx context.Context, paths []string, labels []int64) (*corpus.Report, error) {
	start := time.Now()
	report, err := p.aggregator.Aggregate(ctx, paths, labels)
	err = translateError(err)

	images, skipped := 0, 0
	if report != nil {
		images = report.Images
		if report.Skipped != nil {
			skipped = int(report.Skipped.GetCardinality())
		}
	}
	elapsed := time.Since(start)
	p.opts.metricsCollector.RecordAggregate(images, skipped, elapsed, err)

	logger := p.opts.logger
	total := 0
	if report != nil {
		logger = logger.WithBatch(report.BatchID.String())
		total = report.TotalImages
	}
	logger.LogAggregate(ctx, images, skipped, total, elapsed, err)

	if err != nil {
		return nil, err
	}
	return report, nil
}

// Learn clusters the stored corpus into K visual words and persists the
// vocabulary.
func (p *Pipeline) Learn(ctx context.Context) (*vocab.Vocabulary, *vocab.LearnReport, error) {
	start := time.Now()
	v, report, err := p.learner.Learn(ctx)
	err = translateError(err)

	rows, iterations := 0, 0
	if report != nil {
		rows, iterations = report.Rows, report.Iterations
	}
	elapsed := time.Since(start)
	p.opts.metricsCollector.RecordLearn(rows, p.cfg.K, elapsed, err)
	p.opts.logger.LogLearn(ctx, rows, p.cfg.K, iterations, elapsed, err)

	if err != nil {
		return nil, nil, err
	}
	return v, report, nil
}

// LoadVocabulary reads the stored vocabulary.
func (p *Pipeline) LoadVocabulary(ctx context.Context) (*vocab.Vocabulary, error) {
	v, err := p.vocab.Load(ctx)
	return v, translateError(err)
}

// Assign maps every pixel of img to its nearest visual word.
// If v is nil the stored vocabulary is used.
func (p *Pipeline) Assign(ctx context.Context, v *vocab.Vocabulary, img *imageio.Image) (*vocab.WordMap, error) {
	return p.assign(ctx, v, "", func() (*imageio.Image, error) { return img, nil })
}

// WordMap loads the image at path and maps it to visual words.
// If v is nil the stored vocabulary is used.
func (p *Pipeline) WordMap(ctx context.Context, v *vocab.Vocabulary, path string) (*vocab.WordMap, error) {
	return p.assign(ctx, v, path, func() (*imageio.Image, error) { return p.loader.Load(ctx, path) })
}

func (p *Pipeline) assign(ctx context.Context, v *vocab.Vocabulary, path string, load func() (*imageio.Image, error)) (*vocab.WordMap, error) {
	start := time.Now()
	wm, err := p.doAssign(ctx, v, load)
	err = translateError(err)

	pixels := 0
	if wm != nil {
		pixels = wm.H * wm.W
	}
	p.opts.metricsCollector.RecordAssign(pixels, time.Since(start), err)
	p.opts.logger.LogAssign(ctx, path, pixels, err)

	if err != nil {
		return nil, err
	}
	return wm, nil
}

func (p *Pipeline) doAssign(ctx context.Context, v *vocab.Vocabulary, load func() (*imageio.Image, error)) (*vocab.WordMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v == nil {
		var err error
		if v, err = p.vocab.Load(ctx); err != nil {
			return nil, err
		}
	}
	img, err := load()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("bovw: nil image")
	}
	return v.Assign(p.extractor.Extract(img))
}

// Corpus reads the stored corpus. It returns ErrNoCorpus before the first
// batch was aggregated.
func (p *Pipeline) Corpus(ctx context.Context) (*corpus.Corpus, error) {
	lookup, err := p.corpus.Load(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	if !lookup.Found {
		return nil, ErrNoCorpus
	}
	return lookup.Corpus, nil
}

// Histograms returns the normalized visual word histogram of every stored
// image, in corpus order. If v is nil the stored vocabulary is used.
func (p *Pipeline) Histograms(ctx context.Context, v *vocab.Vocabulary) ([][]float64, error) {
	if v == nil {
		var err error
		if v, err = p.LoadVocabulary(ctx); err != nil {
			return nil, err
		}
	}
	c, err := p.Corpus(ctx)
	if err != nil {
		return nil, err
	}
	h, err := v.CorpusHistograms(c)
	return h, translateError(err)
}
