package corpus

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBatch is returned when a batch contributes no images.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrUnreadable marks a corpus artifact that exists but cannot be decoded.
	ErrUnreadable = errors.New("unreadable corpus artifact")
	// ErrShapeMismatch is matched by *ShapeMismatchError.
	ErrShapeMismatch = errors.New("corpus shape mismatch")
)

// LabelCountError reports a batch whose label count differs from its path count.
type LabelCountError struct {
	Paths  int
	Labels int
}

func (e *LabelCountError) Error() string {
	return fmt.Sprintf("label count mismatch: %d paths, %d labels", e.Paths, e.Labels)
}

// ShapeMismatchError reports feature rows that cannot be stacked onto a corpus.
type ShapeMismatchError struct {
	Alpha, RowsPerImage             int
	ActualAlpha, ActualRowsPerImage int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("corpus shape mismatch: expected %d rows × %d channels per image, got %d × %d",
		e.RowsPerImage, e.Alpha, e.ActualRowsPerImage, e.ActualAlpha)
}

// Is matches ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ImageError wraps the failure of a single image in a batch.
type ImageError struct {
	Index int
	Path  string
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}
