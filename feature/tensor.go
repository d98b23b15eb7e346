package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a stack of C two-dimensional maps of size H×W.
//
// Data is stored channel-last: the value of channel k at (r, c) lives at
// Data[(r*W+c)*C+k], so every spatial location is a contiguous feature row.
type Tensor struct {
	H, W, C int
	Data    []float64
}

// NewTensor allocates a zeroed H×W×C tensor.
func NewTensor(h, w, c int) *Tensor {
	return &Tensor{H: h, W: w, C: c, Data: make([]float64, h*w*c)}
}

// At returns the value of channel k at (r, c).
func (t *Tensor) At(r, c, k int) float64 {
	return t.Data[(r*t.W+c)*t.C+k]
}

// SetChannel copies m into channel k. m must be H×W.
func (t *Tensor) SetChannel(k int, m mat.Matrix) error {
	r, c := m.Dims()
	if r != t.H || c != t.W {
		return fmt.Errorf("channel shape mismatch: expected %dx%d, got %dx%d", t.H, t.W, r, c)
	}
	if k < 0 || k >= t.C {
		return fmt.Errorf("channel index %d out of range [0,%d)", k, t.C)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.Data[(i*t.W+j)*t.C+k] = m.At(i, j)
		}
	}
	return nil
}

// Channel returns a copy of channel k as a matrix.
func (t *Tensor) Channel(k int) *mat.Dense {
	out := mat.NewDense(t.H, t.W, nil)
	for i := 0; i < t.H; i++ {
		for j := 0; j < t.W; j++ {
			out.Set(i, j, t.At(i, j, k))
		}
	}
	return out
}

// NumRows returns H*W.
func (t *Tensor) NumRows() int { return t.H * t.W }

// Row returns the feature row of spatial location i (row-major).
// The slice aliases the tensor data.
func (t *Tensor) Row(i int) []float64 {
	return t.Data[i*t.C : (i+1)*t.C]
}

// Rows returns the (H*W, C) view of the tensor. The matrix shares storage.
func (t *Tensor) Rows() *mat.Dense {
	return mat.NewDense(t.H*t.W, t.C, t.Data)
}
