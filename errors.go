package bovw

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bovw/blobstore"
	"github.com/hupe1980/bovw/corpus"
	"github.com/hupe1980/bovw/feature"
	"github.com/hupe1980/bovw/internal/kmeans"
	"github.com/hupe1980/bovw/vocab"
)

var (
	// ErrInvalidK is returned when the vocabulary size is not positive.
	ErrInvalidK = kmeans.ErrInvalidK
	// ErrInsufficientSamples is returned when the corpus has fewer rows than K.
	ErrInsufficientSamples = kmeans.ErrInsufficientSamples
	// ErrNoCorpus is returned by Learn before any batch was aggregated.
	ErrNoCorpus = vocab.ErrNoCorpus
	// ErrNoVocabulary is returned when no vocabulary has been learned yet.
	ErrNoVocabulary = vocab.ErrNoVocabulary
	// ErrEmptyBatch is returned when a batch yields no images.
	ErrEmptyBatch = corpus.ErrEmptyBatch
	// ErrUnreadableCorpus is returned when a stored corpus cannot be decoded.
	ErrUnreadableCorpus = corpus.ErrUnreadable
	// ErrPatchTooSmall is returned when the HOG block does not fit a patch.
	ErrPatchTooSmall = feature.ErrPatchTooSmall
	// ErrNotFound is returned for missing artifacts or images.
	ErrNotFound = blobstore.ErrNotFound
)

// ErrDimensionMismatch indicates that descriptor rows and vocabulary
// centroids have different lengths.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrShapeMismatch indicates that a batch does not fit the stored corpus.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrShapeMismatch struct {
	Alpha        int
	RowsPerImage int
	ActualAlpha  int
	ActualRows   int
	cause        error
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: corpus has %d rows of %d per image, batch has %d rows of %d",
		e.RowsPerImage, e.Alpha, e.ActualRows, e.ActualAlpha)
}

func (e *ErrShapeMismatch) Unwrap() error { return e.cause }

// ErrLabelCount indicates that paths and labels differ in length.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrLabelCount struct {
	Paths  int
	Labels int
	cause  error
}

func (e *ErrLabelCount) Error() string {
	return fmt.Sprintf("label count mismatch: %d paths, %d labels", e.Paths, e.Labels)
}

func (e *ErrLabelCount) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *vocab.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var sm *corpus.ShapeMismatchError
	if errors.As(err, &sm) {
		return &ErrShapeMismatch{
			Alpha:        sm.Alpha,
			RowsPerImage: sm.RowsPerImage,
			ActualAlpha:  sm.ActualAlpha,
			ActualRows:   sm.ActualRowsPerImage,
			cause:        err,
		}
	}
	var lc *corpus.LabelCountError
	if errors.As(err, &lc) {
		return &ErrLabelCount{Paths: lc.Paths, Labels: lc.Labels, cause: err}
	}

	return err
}
