package corpus

import (
	"fmt"

	"github.com/hupe1980/bovw/archive"
	"github.com/hupe1980/bovw/feature"
	"gonum.org/v1/gonum/mat"
)

// Array names inside the corpus archive.
const (
	arrayFeatures = "features"
	arrayLabels   = "labels"
	arrayBatches  = "batches"
)

// Corpus is the accumulated feature rows of all aggregated images.
type Corpus struct {
	Alpha        int
	RowsPerImage int
	// Features holds Images()×RowsPerImage×Alpha values, row-major.
	Features []float64
	// Labels holds one class label per image.
	Labels []int64
	// Batches holds the image count of every aggregation call, oldest first.
	Batches []int64
}

// New returns an empty corpus.
func New(alpha, rowsPerImage int) *Corpus {
	return &Corpus{Alpha: alpha, RowsPerImage: rowsPerImage}
}

// Images returns the number of images.
func (c *Corpus) Images() int { return len(c.Labels) }

// Rows returns the number of feature rows.
func (c *Corpus) Rows() int { return len(c.Labels) * c.RowsPerImage }

// Matrix returns the (Rows, Alpha) view of the features. The matrix shares
// storage with the corpus. It returns nil for an empty corpus.
func (c *Corpus) Matrix() *mat.Dense {
	if c.Rows() == 0 || c.Alpha == 0 {
		return nil
	}
	return mat.NewDense(c.Rows(), c.Alpha, c.Features)
}

// ImageRows returns the (RowsPerImage, Alpha) view of image i.
func (c *Corpus) ImageRows(i int) *mat.Dense {
	n := c.RowsPerImage * c.Alpha
	return mat.NewDense(c.RowsPerImage, c.Alpha, c.Features[i*n:(i+1)*n])
}

// RowLabels expands the per-image labels to one label per feature row.
func (c *Corpus) RowLabels() []int64 {
	out := make([]int64, 0, c.Rows())
	for _, l := range c.Labels {
		for r := 0; r < c.RowsPerImage; r++ {
			out = append(out, l)
		}
	}
	return out
}

// AddImage appends the rows of t with label.
func (c *Corpus) AddImage(t *feature.Tensor, label int64) error {
	if t.C != c.Alpha || t.NumRows() != c.RowsPerImage {
		return &ShapeMismatchError{
			Alpha: c.Alpha, RowsPerImage: c.RowsPerImage,
			ActualAlpha: t.C, ActualRowsPerImage: t.NumRows(),
		}
	}
	c.Features = append(c.Features, t.Data...)
	c.Labels = append(c.Labels, label)
	return nil
}

// Append stacks other below c.
func (c *Corpus) Append(other *Corpus) error {
	if other.Alpha != c.Alpha || other.RowsPerImage != c.RowsPerImage {
		return &ShapeMismatchError{
			Alpha: c.Alpha, RowsPerImage: c.RowsPerImage,
			ActualAlpha: other.Alpha, ActualRowsPerImage: other.RowsPerImage,
		}
	}
	c.Features = append(c.Features, other.Features...)
	c.Labels = append(c.Labels, other.Labels...)
	c.Batches = append(c.Batches, other.Batches...)
	return nil
}

// Validate checks internal consistency.
func (c *Corpus) Validate() error {
	if c.Alpha <= 0 || c.RowsPerImage <= 0 {
		return fmt.Errorf("invalid corpus shape: alpha=%d rows_per_image=%d", c.Alpha, c.RowsPerImage)
	}
	if want := len(c.Labels) * c.RowsPerImage * c.Alpha; len(c.Features) != want {
		return fmt.Errorf("corpus has %d feature values, want %d for %d images", len(c.Features), want, len(c.Labels))
	}
	var total int64
	for _, b := range c.Batches {
		total += b
	}
	if total != int64(len(c.Labels)) {
		return fmt.Errorf("corpus batches sum to %d, want %d images", total, len(c.Labels))
	}
	return nil
}

// Encode serializes c into an archive.
func Encode(c *Corpus, compression archive.Compression) ([]byte, error) {
	a := archive.New()
	if err := a.PutFloat64(arrayFeatures, []int{c.Images(), c.RowsPerImage, c.Alpha}, c.Features); err != nil {
		return nil, err
	}
	if err := a.PutInt64(arrayLabels, []int{c.Images()}, c.Labels); err != nil {
		return nil, err
	}
	if err := a.PutInt64(arrayBatches, []int{len(c.Batches)}, c.Batches); err != nil {
		return nil, err
	}
	return archive.Marshal(a, compression)
}

// Decode parses a corpus archive.
func Decode(data []byte) (*Corpus, error) {
	a, err := archive.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	feats, shape, err := a.Float64(arrayFeatures)
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("features: expected 3 dimensions, got %v", shape)
	}
	labels, _, err := a.Int64(arrayLabels)
	if err != nil {
		return nil, err
	}
	batches, _, err := a.Int64(arrayBatches)
	if err != nil {
		return nil, err
	}
	if shape[0] != len(labels) {
		return nil, fmt.Errorf("features hold %d images but %d labels", shape[0], len(labels))
	}

	c := &Corpus{
		RowsPerImage: shape[1],
		Alpha:        shape[2],
		Features:     feats,
		Labels:       labels,
		Batches:      batches,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
