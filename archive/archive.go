package archive

import (
	"fmt"
	"slices"

	"github.com/hupe1980/bovw/internal/conv"
)

type array struct {
	name  string
	dtype DType
	shape []int
	f64   []float64
	i64   []int64
}

func (a *array) len() int {
	if a.dtype == Float64 {
		return len(a.f64)
	}
	return len(a.i64)
}

// Archive is an ordered set of named arrays. The zero value is not usable;
// create one with New. An Archive is not safe for concurrent mutation.
type Archive struct {
	arrays []*array
	index  map[string]int
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{index: make(map[string]int)}
}

// PutFloat64 stores a float64 array, replacing any array of the same name.
// The product of shape must equal len(data). The archive keeps data without
// copying.
func (a *Archive) PutFloat64(name string, shape []int, data []float64) error {
	return a.put(&array{name: name, dtype: Float64, shape: slices.Clone(shape), f64: data})
}

// PutInt64 stores an int64 array, replacing any array of the same name.
func (a *Archive) PutInt64(name string, shape []int, data []int64) error {
	return a.put(&array{name: name, dtype: Int64, shape: slices.Clone(shape), i64: data})
}

func (a *Archive) put(arr *array) error {
	if _, err := conv.IntToUint16(len(arr.name)); err != nil || arr.name == "" {
		return fmt.Errorf("invalid array name %q", arr.name)
	}
	if len(arr.shape) > 0xFF {
		return fmt.Errorf("array %q: too many dimensions (%d)", arr.name, len(arr.shape))
	}
	n := 1
	for _, d := range arr.shape {
		var err error
		if n, err = conv.MulInt(n, d); err != nil {
			return fmt.Errorf("%w: array %q: %v", ErrShape, arr.name, err)
		}
	}
	if n != arr.len() {
		return fmt.Errorf("%w: array %q has shape %v but %d elements", ErrShape, arr.name, arr.shape, arr.len())
	}

	if i, ok := a.index[arr.name]; ok {
		a.arrays[i] = arr
		return nil
	}
	a.index[arr.name] = len(a.arrays)
	a.arrays = append(a.arrays, arr)
	return nil
}

// Float64 returns the data and shape of a float64 array.
func (a *Archive) Float64(name string) ([]float64, []int, error) {
	arr, err := a.lookup(name, Float64)
	if err != nil {
		return nil, nil, err
	}
	return arr.f64, slices.Clone(arr.shape), nil
}

// Int64 returns the data and shape of an int64 array.
func (a *Archive) Int64(name string) ([]int64, []int, error) {
	arr, err := a.lookup(name, Int64)
	if err != nil {
		return nil, nil, err
	}
	return arr.i64, slices.Clone(arr.shape), nil
}

func (a *Archive) lookup(name string, dtype DType) (*array, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArray, name)
	}
	arr := a.arrays[i]
	if arr.dtype != dtype {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrTypeMismatch, name, arr.dtype, dtype)
	}
	return arr, nil
}

// Has reports whether an array named name exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Names returns the array names in insertion order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.arrays))
	for i, arr := range a.arrays {
		names[i] = arr.name
	}
	return names
}

// Len returns the number of arrays.
func (a *Archive) Len() int { return len(a.arrays) }
