package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/bovw/distance"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInsufficientSamples matches every *InsufficientSamplesError.
	ErrInsufficientSamples = errors.New("insufficient samples")
)

// InsufficientSamplesError is returned when fewer samples than clusters are
// available.
type InsufficientSamplesError struct {
	Samples int
	K       int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: %d rows for %d clusters", e.Samples, e.K)
}

// Is reports whether target is ErrInsufficientSamples.
func (e *InsufficientSamplesError) Is(target error) bool {
	return target == ErrInsufficientSamples
}

// Options configures Train.
type Options struct {
	// MaxIter caps Lloyd iterations per run. Default: 300.
	MaxIter int
	// NumInit is the number of k-means++ restarts. Default: 10.
	NumInit int
	// Seed seeds the RNG used for k-means++ seeding.
	Seed int64
}

// DefaultOptions returns the default training options.
func DefaultOptions() Options {
	return Options{
		MaxIter: 300,
		NumInit: 10,
	}
}

// Result is the outcome of a training run.
type Result struct {
	// Centroids is the flattened (k * dim) centroid matrix.
	Centroids []float64
	// Assignments holds the cluster index of every input vector.
	Assignments []int
	// Iterations is the number of Lloyd iterations of the winning run.
	Iterations int
	// Converged is false when the winning run hit MaxIter.
	Converged bool
	// Inertia is the sum of squared distances to the assigned centroids.
	Inertia float64
	// EmptyClusters counts centroids with no assigned vector. It is nonzero
	// when the input has fewer distinct vectors than k, in which case the
	// surplus centroids duplicate others.
	EmptyClusters int
}

// Train clusters the flattened vectors (n * dim) into k centroids.
func Train(ctx context.Context, vectors []float64, dim, k int, opts Options) (*Result, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("vector data length %d is not a multiple of dimension %d", len(vectors), dim)
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	n := len(vectors) / dim
	if n < k {
		return nil, &InsufficientSamplesError{Samples: n, K: k}
	}

	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultOptions().MaxIter
	}
	if opts.NumInit <= 0 {
		opts.NumInit = DefaultOptions().NumInit
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	var best *Result
	for run := 0; run < opts.NumInit; run++ {
		res, err := lloyd(ctx, vectors, dim, k, opts.MaxIter, rng)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	best.EmptyClusters = emptyClusters(best.Assignments, k)

	return best, nil
}

func emptyClusters(assignments []int, k int) int {
	used := make([]bool, k)
	for _, a := range assignments {
		used[a] = true
	}
	empty := 0
	for _, u := range used {
		if !u {
			empty++
		}
	}
	return empty
}

// seedPlusPlus picks k initial centroids with D² weighting.
func seedPlusPlus(vectors []float64, dim, k int, rng *rand.Rand) []float64 {
	n := len(vectors) / dim
	centroids := make([]float64, k*dim)

	first := rng.Intn(n)
	copy(centroids[:dim], vectors[first*dim:(first+1)*dim])

	minDist := make([]float64, n)
	for i := 0; i < n; i++ {
		minDist[i] = distance.SquaredL2(vectors[i*dim:(i+1)*dim], centroids[:dim])
	}

	for c := 1; c < k; c++ {
		var total float64
		for _, d := range minDist {
			total += d
		}

		var idx int
		if total == 0 {
			// Fewer distinct points than clusters; duplicates are unavoidable.
			idx = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			idx = n - 1
			var acc float64
			for i, d := range minDist {
				acc += d
				if acc >= target && d > 0 {
					idx = i
					break
				}
			}
		}

		center := centroids[c*dim : (c+1)*dim]
		copy(center, vectors[idx*dim:(idx+1)*dim])

		for i := 0; i < n; i++ {
			d := distance.SquaredL2(vectors[i*dim:(i+1)*dim], center)
			if d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	return centroids
}

func lloyd(ctx context.Context, vectors []float64, dim, k, maxIter int, rng *rand.Rand) (*Result, error) {
	n := len(vectors) / dim
	centroids := seedPlusPlus(vectors, dim, k, rng)

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	dists := make([]float64, n)
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	res := &Result{}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := assign(vectors, centroids, dim, assignments, dists)
		res.Iterations = iter + 1
		if !changed {
			res.Converged = true
			break
		}

		// Update step
		clear(sums)
		clear(counts)
		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			acc := sums[cluster*dim : (cluster+1)*dim]
			for d := range acc {
				acc[d] += vec[d]
			}
			counts[cluster]++
		}

		var taken map[int]bool
		for j := 0; j < k; j++ {
			center := centroids[j*dim : (j+1)*dim]
			if counts[j] > 0 {
				scale := 1 / float64(counts[j])
				for d := range center {
					center[d] = sums[j*dim+d] * scale
				}
				continue
			}
			// Empty cluster: move it onto the worst-served point.
			if taken == nil {
				taken = make(map[int]bool)
			}
			idx := farthest(dists, taken)
			taken[idx] = true
			copy(center, vectors[idx*dim:(idx+1)*dim])
		}
	}

	if !res.Converged {
		assign(vectors, centroids, dim, assignments, dists)
	}

	for _, d := range dists {
		res.Inertia += d
	}
	res.Centroids = centroids
	res.Assignments = assignments
	return res, nil
}

// assign sets every vector to its nearest centroid and reports whether any
// assignment changed.
func assign(vectors, centroids []float64, dim int, assignments []int, dists []float64) bool {
	changed := false
	for i := range assignments {
		best, d := nearest(vectors[i*dim:(i+1)*dim], centroids, dim)
		dists[i] = d
		if assignments[i] != best {
			assignments[i] = best
			changed = true
		}
	}
	return changed
}

func farthest(dists []float64, taken map[int]bool) int {
	idx := 0
	maxDist := -1.0
	for i, d := range dists {
		if taken[i] {
			continue
		}
		if d > maxDist {
			maxDist = d
			idx = i
		}
	}
	return idx
}

func nearest(vec, centroids []float64, dim int) (int, float64) {
	k := len(centroids) / dim
	best := 0
	minDist := math.Inf(1)
	for j := 0; j < k; j++ {
		d := distance.SquaredL2(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best, minDist
}

// AssignPartition finds the closest centroid for a vector. Ties resolve to the
// lowest centroid index.
func AssignPartition(vec []float64, centroids []float64, dim int) int {
	best, _ := nearest(vec, centroids, dim)
	return best
}
