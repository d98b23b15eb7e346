package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/vocab"
	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// File names used by the NumPy exports.
const (
	VocabularyNPY = "bow_dictionary.npy"
	CorpusNPZ     = "bow_feature.npz"
)

// Array names inside the corpus .npz.
const (
	npzFeatures     = "features.npy"
	npzLabels       = "labels.npy"
	npzRowsPerImage = "rows_per_image.npy"
)

// WriteVocabularyNPY writes the (K, Dim) centroid matrix as a .npy array.
func WriteVocabularyNPY(w io.Writer, v *vocab.Vocabulary) error {
	return npyio.Write(w, v.Matrix())
}

// ReadVocabularyNPY reads a (K, Dim) float64 .npy array.
func ReadVocabularyNPY(r io.Reader) (*vocab.Vocabulary, error) {
	var m mat.Dense
	if err := npyio.Read(r, &m); err != nil {
		return nil, fmt.Errorf("read vocabulary npy: %w", err)
	}
	k, dim := m.Dims()
	return vocab.New(k, dim, m.RawMatrix().Data)
}

// WriteCorpusNPZ writes the corpus as an .npz archive holding features as a
// (rows, alpha) matrix, one label per image and the rows-per-image count.
func WriteCorpusNPZ(w io.Writer, c *corpus.Corpus) error {
	if c.Images() == 0 {
		return errors.New("export: empty corpus")
	}

	zw := npz.NewWriter(w)
	if err := zw.Write(npzFeatures, c.Matrix()); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write features: %w", err)
	}
	if err := zw.Write(npzLabels, c.Labels); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write labels: %w", err)
	}
	if err := zw.Write(npzRowsPerImage, []int64{int64(c.RowsPerImage)}); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write rows_per_image: %w", err)
	}
	return zw.Close()
}

// ReadCorpusNPZ reads an archive written by WriteCorpusNPZ. The result is a
// single-batch corpus.
func ReadCorpusNPZ(r io.ReaderAt, size int64) (*corpus.Corpus, error) {
	zr, err := npz.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open npz: %w", err)
	}

	var feats mat.Dense
	if err := zr.Read(npzFeatures, &feats); err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	var labels []int64
	if err := zr.Read(npzLabels, &labels); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var rpi []int64
	if err := zr.Read(npzRowsPerImage, &rpi); err != nil {
		return nil, fmt.Errorf("read rows_per_image: %w", err)
	}
	if len(rpi) != 1 || rpi[0] <= 0 {
		return nil, fmt.Errorf("invalid rows_per_image %v", rpi)
	}

	_, alpha := feats.Dims()
	c := &corpus.Corpus{
		Alpha:        alpha,
		RowsPerImage: int(rpi[0]),
		Features:     feats.RawMatrix().Data,
		Labels:       labels,
		Batches:      []int64{int64(len(labels))},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
