package bovw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/config"
	"github.com/hupe1980/bovw/imageio"
	"github.com/hupe1980/bovw/testutil"
	"github.com/hupe1980/bovw/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImages(n int) (imageio.Loader, []string, []int64) {
	rng := testutil.NewRNG(5)
	images := make(map[string]*imageio.Image, n)
	paths := make([]string, n)
	labels := make([]int64, n)
	for i := range paths {
		p := fmt.Sprintf("img_%02d.png", i)
		paths[i] = p
		labels[i] = int64(i % 2)
		if i%2 == 0 {
			images[p] = testutil.Squares(32, 32, 6+i)
		} else {
			images[p] = rng.Noise(32, 32)
		}
	}
	loader := imageio.LoaderFunc(func(ctx context.Context, path string) (*imageio.Image, error) {
		img, ok := images[path]
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, blobstore.ErrNotFound)
		}
		return img, nil
	})
	return loader, paths, labels
}

func newTestPipeline(t *testing.T, k int, opts ...Option) (*Pipeline, []string, []int64) {
	t.Helper()
	loader, paths, labels := testImages(6)
	cfg := config.Default()
	cfg.K = k
	cfg.NumInit = 2
	cfg.Seed = 3

	opts = append([]Option{
		WithStore(blobstore.NewMemoryStore()),
		WithLoader(loader),
		WithWorkers(2),
	}, opts...)
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p, paths, labels
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Alpha = 0
	_, err := New(cfg)
	var fe *config.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "alpha", fe.Field)
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	p, paths, labels := newTestPipeline(t, 3, WithMetricsCollector(metrics))

	report, err := p.Aggregate(ctx, paths[:4], labels[:4])
	require.NoError(t, err)
	assert.Equal(t, 4, report.Images)

	report, err = p.Aggregate(ctx, paths[4:], labels[4:])
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalImages)

	c, err := p.Corpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, labels, c.Labels)
	assert.Equal(t, 6*49, c.Rows())

	v, learnReport, err := p.Learn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v.K)
	assert.Equal(t, 5, v.Dim)
	assert.Equal(t, c.Rows(), learnReport.Rows)

	stored, err := p.LoadVocabulary(ctx)
	require.NoError(t, err)
	assert.Equal(t, v.Centroids, stored.Centroids)

	wm, err := p.WordMap(ctx, nil, paths[0])
	require.NoError(t, err)
	assert.Equal(t, 7, wm.H)
	assert.Equal(t, 7, wm.W)
	for _, w := range wm.Words {
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, 3)
	}

	hists, err := p.Histograms(ctx, v)
	require.NoError(t, err)
	require.Len(t, hists, 6)
	for _, h := range hists {
		var sum float64
		for _, x := range h {
			sum += x
		}
		assert.InDelta(t, 1, sum, 1e-9)
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(6), stats.ImageCount)
	assert.Equal(t, int64(2), stats.AggregateCount)
	assert.Equal(t, int64(6), stats.AggregateImages)
	assert.Equal(t, int64(1), stats.LearnCount)
	assert.Equal(t, int64(1), stats.AssignCount)
	assert.Equal(t, int64(49), stats.AssignPixels)
}

func TestPipeline_AssignMatchesExtract(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t, 2)

	img := testutil.Squares(24, 24, 8)
	centroids := make([]float64, 2*5)
	for i := 5; i < 10; i++ {
		centroids[i] = 10
	}
	v, err := vocab.New(2, 5, centroids)
	require.NoError(t, err)

	wm, err := p.Assign(ctx, v, img)
	require.NoError(t, err)

	tensor := p.Extract(img)
	for i := 0; i < tensor.NumRows(); i++ {
		want, err := v.Nearest(tensor.Row(i))
		require.NoError(t, err)
		assert.Equal(t, want, wm.Words[i])
	}
}

func TestPipeline_Keypoints(t *testing.T) {
	ctx := context.Background()
	p, paths, _ := newTestPipeline(t, 2)

	kps, err := p.Keypoints(ctx, paths[0])
	require.NoError(t, err)
	require.NotEmpty(t, kps)
	for _, kp := range kps {
		assert.Greater(t, kp.Response, 0.0)
	}

	_, err = p.Keypoints(ctx, "missing.png")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestPipeline_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("learn without corpus", func(t *testing.T) {
		p, _, _ := newTestPipeline(t, 2)
		_, _, err := p.Learn(ctx)
		require.ErrorIs(t, err, ErrNoCorpus)
		_, err = p.Corpus(ctx)
		require.ErrorIs(t, err, ErrNoCorpus)
	})

	t.Run("no vocabulary", func(t *testing.T) {
		p, paths, _ := newTestPipeline(t, 2)
		_, err := p.LoadVocabulary(ctx)
		require.ErrorIs(t, err, ErrNoVocabulary)
		_, err = p.WordMap(ctx, nil, paths[0])
		require.ErrorIs(t, err, ErrNoVocabulary)
	})

	t.Run("insufficient samples", func(t *testing.T) {
		p, paths, labels := newTestPipeline(t, 50)
		_, err := p.Aggregate(ctx, paths[:1], labels[:1])
		require.NoError(t, err)
		_, _, err = p.Learn(ctx)
		require.ErrorIs(t, err, ErrInsufficientSamples)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		p, _, _ := newTestPipeline(t, 2)
		v, err := vocab.New(2, 3, make([]float64, 6))
		require.NoError(t, err)
		_, err = p.Assign(ctx, v, testutil.Flat(16, 16, 0.5))
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 5, dm.Actual)
		require.ErrorIs(t, err, vocab.ErrDimensionMismatch)
	})

	t.Run("label count", func(t *testing.T) {
		p, paths, _ := newTestPipeline(t, 2)
		_, err := p.Aggregate(ctx, paths[:2], []int64{1})
		var lc *ErrLabelCount
		require.ErrorAs(t, err, &lc)
		assert.Equal(t, 2, lc.Paths)
		assert.Equal(t, 1, lc.Labels)
	})

	t.Run("missing image fails the batch", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		p, paths, labels := newTestPipeline(t, 2, WithMetricsCollector(metrics))
		_, err := p.Aggregate(ctx, append(paths[:1:1], "missing.png"), labels[:2])
		require.ErrorIs(t, err, ErrNotFound)
		_, err = p.Corpus(ctx)
		require.ErrorIs(t, err, ErrNoCorpus)
		assert.Equal(t, int64(1), metrics.GetStats().AggregateErrors)
	})

	t.Run("missing image skipped", func(t *testing.T) {
		var progress bytes.Buffer
		p, paths, _ := newTestPipeline(t, 2, WithSkipFailed(), WithProgress(&progress))
		report, err := p.Aggregate(ctx, []string{paths[0], "missing.png", paths[1]}, []int64{7, 8, 9})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Images)
		assert.True(t, report.Skipped.Contains(1))

		c, err := p.Corpus(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 9}, c.Labels)
		assert.NotZero(t, progress.Len())
	})
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, translateError(plain))

	err := translateError(fmt.Errorf("wrapped: %w", &vocab.DimensionMismatchError{Expected: 4, Actual: 2}))
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
}

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}
	m.RecordImage(10, nil)
	m.RecordImage(30, errors.New("x"))
	m.RecordLearn(100, 4, 50, nil)
	m.RecordAssign(49, 5, nil)
	m.RecordAssign(0, 5, errors.New("x"))

	s := m.GetStats()
	assert.Equal(t, int64(2), s.ImageCount)
	assert.Equal(t, int64(1), s.ImageErrors)
	assert.Equal(t, int64(20), s.ImageAvgNanos)
	assert.Equal(t, int64(100), s.LearnRows)
	assert.Equal(t, int64(50), s.LearnAvgNanos)
	assert.Equal(t, int64(2), s.AssignCount)
	assert.Equal(t, int64(49), s.AssignPixels)
	assert.Equal(t, int64(0), (&BasicMetricsCollector{}).GetStats().ImageAvgNanos)

	assert.Equal(t, int64(1), s.AssignErrors)
}
