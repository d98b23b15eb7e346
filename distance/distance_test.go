package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 27},
		{"Identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"Mixed", []float64{1, -1}, []float64{-1, 1}, 8},
		{"Empty", []float64{}, []float64{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-12)
			assert.InDelta(t, math.Sqrt(tt.expected), Euclidean(tt.a, tt.b), 1e-12)
		})
	}
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricL2)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, fn([]float64{0, 0}, []float64{3, 4}), 1e-12)

	fn, err = Provider(MetricSquaredL2)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, fn([]float64{0, 0}, []float64{3, 4}), 1e-12)

	_, err = Provider(Metric(999))
	assert.Error(t, err)
	assert.Equal(t, "Unknown(999)", Metric(999).String())
}

func TestPairwise(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 4,
		10, 10,
	})
	y := mat.NewDense(2, 2, []float64{
		0, 0,
		10, 10,
	})

	d, err := Pairwise(x, y, MetricL2)
	require.NoError(t, err)

	r, c := d.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 0.0, d.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, d.At(1, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(85), d.At(1, 1), 1e-12)
	assert.InDelta(t, 0.0, d.At(2, 1), 1e-12)

	t.Run("ColumnMismatch", func(t *testing.T) {
		_, err := Pairwise(x, mat.NewDense(1, 3, nil), MetricL2)
		assert.Error(t, err)
	})
}

func TestArgminRows(t *testing.T) {
	d := mat.NewDense(3, 3, []float64{
		1, 0, 2,
		5, 5, 5, // tie: lowest index wins
		math.NaN(), 3, 1,
	})
	assert.Equal(t, []int{1, 0, 2}, ArgminRows(d))
}
