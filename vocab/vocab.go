package vocab

import (
	"fmt"

	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/distance"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/internal/kmeans"
	"gonum.org/v1/gonum/mat"
)

// Vocabulary is a set of K visual words in a Dim-dimensional space.
type Vocabulary struct {
	K   int
	Dim int
	// Centroids holds K×Dim values, row-major.
	Centroids []float64
}

// New validates and wraps a centroid matrix.
func New(k, dim int, centroids []float64) (*Vocabulary, error) {
	if k <= 0 {
		return nil, kmeans.ErrInvalidK
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	if len(centroids) != k*dim {
		return nil, fmt.Errorf("centroid data has %d values, want %d×%d", len(centroids), k, dim)
	}
	return &Vocabulary{K: k, Dim: dim, Centroids: centroids}, nil
}

// Centroid returns word i. The slice aliases the vocabulary.
func (v *Vocabulary) Centroid(i int) []float64 {
	return v.Centroids[i*v.Dim : (i+1)*v.Dim]
}

// Matrix returns the (K, Dim) view of the centroids.
func (v *Vocabulary) Matrix() *mat.Dense {
	return mat.NewDense(v.K, v.Dim, v.Centroids)
}

// Nearest returns the word closest to row.
func (v *Vocabulary) Nearest(row []float64) (int, error) {
	if len(row) != v.Dim {
		return 0, &DimensionMismatchError{Expected: v.Dim, Actual: len(row)}
	}
	return kmeans.AssignPartition(row, v.Centroids, v.Dim), nil
}

// Assign computes the word map of t: the nearest word of every spatial
// location, by full pairwise Euclidean distance.
func (v *Vocabulary) Assign(t *feature.Tensor) (*WordMap, error) {
	if t.C != v.Dim {
		return nil, &DimensionMismatchError{Expected: v.Dim, Actual: t.C}
	}
	words, err := v.assignRows(t.Rows())
	if err != nil {
		return nil, err
	}
	return &WordMap{H: t.H, W: t.W, Words: words}, nil
}

func (v *Vocabulary) assignRows(rows mat.Matrix) ([]int, error) {
	d, err := distance.Pairwise(rows, v.Matrix(), distance.MetricL2)
	if err != nil {
		return nil, err
	}
	return distance.ArgminRows(d), nil
}

// HistogramOfRows returns the L1-normalized word histogram of an (n, Dim)
// matrix of feature rows.
func (v *Vocabulary) HistogramOfRows(rows mat.Matrix) ([]float64, error) {
	_, c := rows.Dims()
	if c != v.Dim {
		return nil, &DimensionMismatchError{Expected: v.Dim, Actual: c}
	}
	words, err := v.assignRows(rows)
	if err != nil {
		return nil, err
	}
	return histogram(words, v.K), nil
}

// CorpusHistograms returns one word histogram per corpus image, in corpus order.
func (v *Vocabulary) CorpusHistograms(c *corpus.Corpus) ([][]float64, error) {
	if c.Alpha != v.Dim {
		return nil, &DimensionMismatchError{Expected: v.Dim, Actual: c.Alpha}
	}
	out := make([][]float64, c.Images())
	for i := range out {
		h, err := v.HistogramOfRows(c.ImageRows(i))
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func histogram(words []int, k int) []float64 {
	h := make([]float64, k)
	if len(words) == 0 {
		return h
	}
	for _, w := range words {
		h[w]++
	}
	n := float64(len(words))
	for i := range h {
		h[i] /= n
	}
	return h
}
