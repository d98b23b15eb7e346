// Package distance provides vector distance calculations used by clustering
// and word assignment.
package distance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// MetricL2 is the Euclidean distance.
	MetricL2 Metric = iota
	// MetricSquaredL2 is the squared Euclidean distance. It orders points
	// exactly like MetricL2 and skips the square root.
	MetricSquaredL2
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricSquaredL2:
		return "SquaredL2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return Euclidean, nil
	case MetricSquaredL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Pairwise computes the full distance matrix between the rows of x and the
// rows of y. The result has shape (rows(x), rows(y)).
func Pairwise(x, y mat.Matrix, m Metric) (*mat.Dense, error) {
	fn, err := Provider(m)
	if err != nil {
		return nil, err
	}

	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xc != yc {
		return nil, fmt.Errorf("column mismatch: %d vs %d", xc, yc)
	}

	xrows := rowsOf(x)
	yrows := rowsOf(y)

	out := mat.NewDense(xr, yr, nil)
	for i, a := range xrows {
		row := out.RawRowView(i)
		for j, b := range yrows {
			row[j] = fn(a, b)
		}
	}
	return out, nil
}

// ArgminRows returns, for every row of d, the column index of its smallest
// entry. Ties resolve to the lowest index. NaN entries never win.
func ArgminRows(d mat.Matrix) []int {
	r, c := d.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		best := 0
		bestVal := math.Inf(1)
		for j := 0; j < c; j++ {
			v := d.At(i, j)
			if v < bestVal {
				bestVal = v
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// rowsOf returns row views when m is a *mat.Dense, copies otherwise.
func rowsOf(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	if rv, ok := m.(mat.RawRowViewer); ok {
		for i := range rows {
			rows[i] = rv.RawRowView(i)
		}
		return rows
	}
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
