package progress

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two progress log lines.
const DefaultInterval = 2 * time.Second

// Reporter tracks completion of a fixed number of items.
// It is safe for concurrent use.
type Reporter struct {
	total   int
	done    atomic.Int64
	failed  atomic.Int64
	marker  []byte
	logger  *slog.Logger
	limiter *rate.Limiter
	start   time.Time

	mu sync.Mutex // guards w
	w  io.Writer
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWriter sets the marker writer. Defaults to io.Discard.
func WithWriter(w io.Writer) Option {
	return func(r *Reporter) {
		if w != nil {
			r.w = w
		}
	}
}

// WithLogger sets the logger for progress lines.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithInterval sets the minimum time between progress lines.
// A non-positive interval logs every item.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New creates a Reporter for total items.
func New(total int, opts ...Option) *Reporter {
	r := &Reporter{
		total:   total,
		marker:  []byte{'.'},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		start:   time.Now(),
		w:       io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Done records a successfully completed item.
func (r *Reporter) Done() {
	r.done.Add(1)
	r.tick()
}

// Failed records a failed item.
func (r *Reporter) Failed() {
	r.failed.Add(1)
	r.tick()
}

// Completed returns the number of successful items.
func (r *Reporter) Completed() int { return int(r.done.Load()) }

// Failures returns the number of failed items.
func (r *Reporter) Failures() int { return int(r.failed.Load()) }

// Elapsed returns the time since the reporter was created.
func (r *Reporter) Elapsed() time.Duration { return time.Since(r.start) }

func (r *Reporter) tick() {
	r.mu.Lock()
	_, _ = r.w.Write(r.marker)
	r.mu.Unlock()

	if r.limiter.Allow() {
		r.logger.Info("progress",
			slog.Int("done", r.Completed()),
			slog.Int("failed", r.Failures()),
			slog.Int("total", r.total),
			slog.Duration("elapsed", r.Elapsed()),
		)
	}
}
