package bovw

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Implementations must be safe for concurrent use: RecordImage is called from
// the extraction workers.
type MetricsCollector interface {
	// RecordImage is called after each image of a batch was loaded and
	// described. err is nil if successful.
	RecordImage(duration time.Duration, err error)

	// RecordAggregate is called after each batch. images is the number of
	// images appended, skipped the number dropped under the skip policy.
	RecordAggregate(images, skipped int, duration time.Duration, err error)

	// RecordLearn is called after each clustering run.
	RecordLearn(rows, k int, duration time.Duration, err error)

	// RecordAssign is called after each word map. pixels is H*W.
	RecordAssign(pixels int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordImage(time.Duration, error)               {}
func (NoopMetricsCollector) RecordAggregate(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLearn(int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordAssign(int, time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ImageCount       atomic.Int64
	ImageErrors      atomic.Int64
	ImageTotalNanos  atomic.Int64
	AggregateCount   atomic.Int64
	AggregateErrors  atomic.Int64
	AggregateImages  atomic.Int64
	AggregateSkipped atomic.Int64
	LearnCount       atomic.Int64
	LearnErrors      atomic.Int64
	LearnRows        atomic.Int64
	LearnTotalNanos  atomic.Int64
	AssignCount      atomic.Int64
	AssignErrors     atomic.Int64
	AssignPixels     atomic.Int64
}

// RecordImage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImage(duration time.Duration, err error) {
	b.ImageCount.Add(1)
	b.ImageTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ImageErrors.Add(1)
	}
}

// RecordAggregate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAggregate(images, skipped int, duration time.Duration, err error) {
	b.AggregateCount.Add(1)
	if err != nil {
		b.AggregateErrors.Add(1)
		return
	}
	b.AggregateImages.Add(int64(images))
	b.AggregateSkipped.Add(int64(skipped))
}

// RecordLearn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLearn(rows, k int, duration time.Duration, err error) {
	b.LearnCount.Add(1)
	b.LearnTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LearnErrors.Add(1)
		return
	}
	b.LearnRows.Add(int64(rows))
}

// RecordAssign implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssign(pixels int, duration time.Duration, err error) {
	b.AssignCount.Add(1)
	if err != nil {
		b.AssignErrors.Add(1)
		return
	}
	b.AssignPixels.Add(int64(pixels))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ImageCount:       b.ImageCount.Load(),
		ImageErrors:      b.ImageErrors.Load(),
		ImageAvgNanos:    avg(b.ImageTotalNanos.Load(), b.ImageCount.Load()),
		AggregateCount:   b.AggregateCount.Load(),
		AggregateErrors:  b.AggregateErrors.Load(),
		AggregateImages:  b.AggregateImages.Load(),
		AggregateSkipped: b.AggregateSkipped.Load(),
		LearnCount:       b.LearnCount.Load(),
		LearnErrors:      b.LearnErrors.Load(),
		LearnRows:        b.LearnRows.Load(),
		LearnAvgNanos:    avg(b.LearnTotalNanos.Load(), b.LearnCount.Load()),
		AssignCount:      b.AssignCount.Load(),
		AssignErrors:     b.AssignErrors.Load(),
		AssignPixels:     b.AssignPixels.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ImageCount       int64
	ImageErrors      int64
	ImageAvgNanos    int64
	AggregateCount   int64
	AggregateErrors  int64
	AggregateImages  int64
	AggregateSkipped int64
	LearnCount       int64
	LearnErrors      int64
	LearnRows        int64
	LearnAvgNanos    int64
	AssignCount      int64
	AssignErrors     int64
	AssignPixels     int64
}
