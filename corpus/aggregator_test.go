package corpus

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/imageio"
	"github.com/hupe1980/bovw/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("no such image")

// fakeLoader serves synthetic images by path with per-path delays.
type fakeLoader struct {
	images map[string]*imageio.Image
	delays map[string]time.Duration
}

func newFakeLoader(n int) (*fakeLoader, []string) {
	rng := testutil.NewRNG(11)
	l := &fakeLoader{
		images: make(map[string]*imageio.Image),
		delays: make(map[string]time.Duration),
	}
	paths := make([]string, n)
	for i := range paths {
		p := fmt.Sprintf("img_%03d.png", i)
		paths[i] = p
		if i%2 == 0 {
			l.images[p] = testutil.Squares(24+i, 24+i, 4)
		} else {
			l.images[p] = rng.Noise(24, 24)
		}
		l.delays[p] = time.Duration(rng.Intn(3)) * time.Millisecond
	}
	return l, paths
}

func (l *fakeLoader) Load(ctx context.Context, path string) (*imageio.Image, error) {
	time.Sleep(l.delays[path])
	img, ok := l.images[path]
	if !ok {
		return nil, errMissing
	}
	return img, ctx.Err()
}

func newExtractor(t *testing.T) *feature.Extractor {
	t.Helper()
	e, err := feature.NewExtractor(feature.DefaultParams())
	require.NoError(t, err)
	return e
}

func labelsFor(n int, base int64) []int64 {
	labels := make([]int64, n)
	for i := range labels {
		labels[i] = base + int64(i)
	}
	return labels
}

func TestAggregate_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(12)
	extractor := newExtractor(t)
	store := NewStore(blobstore.NewMemoryStore())

	agg, err := NewAggregator(extractor, loader, store, WithWorkers(4))
	require.NoError(t, err)

	report, err := agg.Aggregate(ctx, paths, labelsFor(12, 100))
	require.NoError(t, err)
	assert.Equal(t, 12, report.Images)
	assert.Equal(t, 12*49, report.Rows)
	assert.False(t, report.PriorFound)
	assert.True(t, report.Skipped.IsEmpty())
	assert.False(t, report.BatchID.IsNil())

	lookup, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, lookup.Found)
	c := lookup.Corpus

	require.Equal(t, labelsFor(12, 100), c.Labels)
	assert.Equal(t, []int64{12}, c.Batches)
	for i, p := range paths {
		want := extractor.Extract(loader.images[p])
		got := c.Features[i*49*5 : (i+1)*49*5]
		assert.Equal(t, want.Data, got, "image %d", i)
	}
}

func TestAggregate_MergesBatches(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(5)
	store := NewStore(blobstore.NewMemoryStore())
	agg, err := NewAggregator(newExtractor(t), loader, store)
	require.NoError(t, err)

	_, err = agg.Aggregate(ctx, paths[:2], []int64{1, 2})
	require.NoError(t, err)

	first, err := store.Load(ctx)
	require.NoError(t, err)
	firstRows := append([]float64(nil), first.Corpus.Features...)

	report, err := agg.Aggregate(ctx, paths[2:], []int64{3, 4, 5})
	require.NoError(t, err)
	assert.True(t, report.PriorFound)
	assert.Equal(t, 3, report.Images)
	assert.Equal(t, 5, report.TotalImages)
	assert.Equal(t, 5*49, report.TotalRows)

	merged, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, merged.Corpus.Labels)
	assert.Equal(t, []int64{2, 3}, merged.Corpus.Batches)
	assert.Equal(t, firstRows, merged.Corpus.Features[:len(firstRows)])
}

func TestAggregate_SameBatchTwiceAppends(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(2)
	store := NewStore(blobstore.NewMemoryStore())
	agg, err := NewAggregator(newExtractor(t), loader, store, WithWorkers(2))
	require.NoError(t, err)

	_, err = agg.Aggregate(ctx, paths, []int64{1, 2})
	require.NoError(t, err)
	report, err := agg.Aggregate(ctx, paths, []int64{1, 2})
	require.NoError(t, err)
	assert.True(t, report.PriorFound)
	assert.Equal(t, 4*49, report.TotalRows)

	lookup, err := store.Load(ctx)
	require.NoError(t, err)
	c := lookup.Corpus
	assert.Equal(t, []int64{1, 2, 1, 2}, c.Labels)
	assert.Equal(t, []int64{2, 2}, c.Batches)

	half := len(c.Features) / 2
	assert.Equal(t, c.Features[:half], c.Features[half:])
}

func TestAggregate_InvalidBatch(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(2)
	agg, err := NewAggregator(newExtractor(t), loader, NewStore(blobstore.NewMemoryStore()))
	require.NoError(t, err)

	_, err = agg.Aggregate(ctx, paths, []int64{1})
	var lc *LabelCountError
	require.ErrorAs(t, err, &lc)
	assert.Equal(t, 2, lc.Paths)
	assert.Equal(t, 1, lc.Labels)

	_, err = agg.Aggregate(ctx, nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = NewAggregator(nil, loader, nil)
	require.Error(t, err)
}

func TestAggregate_SkipFailed(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(4)
	paths = []string{paths[0], "missing_a.png", paths[1], "missing_b.png", paths[2]}

	store := NewStore(blobstore.NewMemoryStore())
	agg, err := NewAggregator(newExtractor(t), loader, store, WithSkipFailed(), WithWorkers(2))
	require.NoError(t, err)

	report, err := agg.Aggregate(ctx, paths, []int64{10, 11, 12, 13, 14})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Images)
	assert.Equal(t, []uint32{1, 3}, report.Skipped.ToArray())

	lookup, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 12, 14}, lookup.Corpus.Labels)
	assert.Equal(t, []int64{3}, lookup.Corpus.Batches)
}

func TestAggregate_SkipFailed_AllFail(t *testing.T) {
	loader, _ := newFakeLoader(0)
	agg, err := NewAggregator(newExtractor(t), loader, NewStore(blobstore.NewMemoryStore()), WithSkipFailed())
	require.NoError(t, err)

	_, err = agg.Aggregate(context.Background(), []string{"a", "b"}, []int64{1, 2})
	require.ErrorIs(t, err, ErrEmptyBatch)
	require.ErrorIs(t, err, errMissing)
}

func TestAggregate_FailFastKeepsCorpus(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(3)
	blobs := blobstore.NewMemoryStore()
	store := NewStore(blobs)
	agg, err := NewAggregator(newExtractor(t), loader, store)
	require.NoError(t, err)

	_, err = agg.Aggregate(ctx, paths[:1], []int64{1})
	require.NoError(t, err)
	before, err := blobs.Get(ctx, DefaultName)
	require.NoError(t, err)

	_, err = agg.Aggregate(ctx, []string{paths[1], "missing.png", paths[2]}, []int64{2, 3, 4})
	var ie *ImageError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "missing.png", ie.Path)
	require.ErrorIs(t, err, errMissing)

	after, err := blobs.Get(ctx, DefaultName)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAggregate_UnreadablePrior(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(2)

	t.Run("fresh corpus", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		require.NoError(t, blobs.Put(ctx, DefaultName, []byte("not an archive")))
		store := NewStore(blobs)

		agg, err := NewAggregator(newExtractor(t), loader, store)
		require.NoError(t, err)
		report, err := agg.Aggregate(ctx, paths, []int64{1, 2})
		require.NoError(t, err)
		assert.False(t, report.PriorFound)
		assert.Equal(t, 2, report.TotalImages)
	})

	t.Run("corrupt payload length", func(t *testing.T) {
		prior := New(5, 49)
		require.NoError(t, prior.AddImage(tensorOf(5, 1), 9))
		prior.Batches = []int64{1}
		data, err := Encode(prior, archive.CompressionZstd)
		require.NoError(t, err)
		binary.LittleEndian.PutUint64(data[16:], 1<<62)

		blobs := blobstore.NewMemoryStore()
		require.NoError(t, blobs.Put(ctx, DefaultName, data))
		store := NewStore(blobs)

		_, err = store.Load(ctx)
		require.ErrorIs(t, err, ErrUnreadable)
		require.ErrorIs(t, err, archive.ErrCorrupt)

		agg, err := NewAggregator(newExtractor(t), loader, store)
		require.NoError(t, err)
		var report *Report
		require.NotPanics(t, func() {
			report, err = agg.Aggregate(ctx, paths, []int64{1, 2})
		})
		require.NoError(t, err)
		assert.False(t, report.PriorFound)
		assert.Equal(t, 2, report.TotalImages)

		lookup, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, lookup.Corpus.Labels)
	})

	t.Run("strict", func(t *testing.T) {
		blobs := blobstore.NewMemoryStore()
		require.NoError(t, blobs.Put(ctx, DefaultName, []byte("not an archive")))

		agg, err := NewAggregator(newExtractor(t), loader, NewStore(blobs), WithStrictPrior())
		require.NoError(t, err)
		_, err = agg.Aggregate(ctx, paths, []int64{1, 2})
		require.ErrorIs(t, err, ErrUnreadable)
	})
}

func TestAggregate_ShapeMismatch(t *testing.T) {
	ctx := context.Background()
	loader, paths := newFakeLoader(1)
	store := NewStore(blobstore.NewMemoryStore())

	prior := New(3, 49)
	require.NoError(t, prior.AddImage(tensorOf(3, 1), 1))
	prior.Batches = []int64{1}
	require.NoError(t, store.Save(ctx, prior))

	agg, err := NewAggregator(newExtractor(t), loader, store)
	require.NoError(t, err)
	_, err = agg.Aggregate(ctx, paths, []int64{1})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAggregate_ProgressAndObserver(t *testing.T) {
	loader, paths := newFakeLoader(6)
	var (
		markers bytes.Buffer
		mu      sync.Mutex
		seen    []string
	)

	agg, err := NewAggregator(newExtractor(t), loader, NewStore(blobstore.NewMemoryStore()),
		WithProgress(&markers),
		WithImageObserver(func(path string, _ time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, err)
			seen = append(seen, path)
		}),
	)
	require.NoError(t, err)

	_, err = agg.Aggregate(context.Background(), paths, labelsFor(6, 0))
	require.NoError(t, err)
	assert.Equal(t, "......", markers.String())
	assert.ElementsMatch(t, paths, seen)
}

func TestAggregate_Cancelled(t *testing.T) {
	loader, paths := newFakeLoader(4)
	store := NewStore(blobstore.NewMemoryStore())
	agg, err := NewAggregator(newExtractor(t), loader, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = agg.Aggregate(ctx, paths, labelsFor(4, 0))
	require.ErrorIs(t, err, context.Canceled)

	lookup, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, lookup.Found)
}
