package vocab

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCorpus is returned by Learn when no corpus artifact exists.
	ErrNoCorpus = errors.New("no corpus to learn from")
	// ErrNoVocabulary is returned when no vocabulary artifact exists.
	ErrNoVocabulary = errors.New("no vocabulary")
	// ErrDimensionMismatch is matched by *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// DimensionMismatchError reports feature rows whose width differs from the
// vocabulary dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
