package bovw

import (
	"io"
	"log/slog"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/imageio"
)

type options struct {
	store            blobstore.Store
	loader           imageio.Loader
	metricsCollector MetricsCollector
	logger           *Logger
	compression      *archive.Compression
	workers          *int
	skipFailed       bool
	strictPrior      bool
	progress         io.Writer
}

// Option configures the Pipeline constructor.
type Option func(*options)

// WithStore configures where the corpus and vocabulary artifacts live.
// Defaults to a LocalStore rooted at the configured feat_dir.
//
// Example with S3:
//
//	cfg, _ := awsconfig.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "bovw/")
//	p, _ := bovw.New(conf, bovw.WithStore(store))
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLoader configures how image paths are decoded.
// Defaults to a FileLoader rooted at the configured data_dir.
func WithLoader(l imageio.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithCompression overrides the configured artifact compression.
func WithCompression(c archive.Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

// WithWorkers overrides the configured extraction pool size.
// n <= 0 means one worker per CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = &n
	}
}

// WithSkipFailed drops images that fail to load or describe instead of
// failing the whole batch. Dropped images are logged and reported.
func WithSkipFailed() Option {
	return func(o *options) {
		o.skipFailed = true
	}
}

// WithStrictPrior makes an unreadable stored corpus an error instead of
// starting a fresh one.
func WithStrictPrior() Option {
	return func(o *options) {
		o.strictPrior = true
	}
}

// WithProgress writes one progress marker per processed image to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bovw.BasicMetricsCollector{}
//	p, _ := bovw.New(cfg, bovw.WithMetricsCollector(metrics))
//	// ... use p ...
//	stats := metrics.GetStats()
//	fmt.Printf("Images: %d, Avg latency: %dns\n", stats.ImageCount, stats.ImageAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bovw.NewJSONLogger(slog.LevelInfo)
//	p, _ := bovw.New(cfg, bovw.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
