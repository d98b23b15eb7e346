package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/bovw/imageio"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float64()
	}
}

// GaussianClusters generates perCluster points around each of k means placed
// separation apart along the diagonal. It returns the flattened points
// (k*perCluster*dim, grouped by cluster) and the flattened true means.
func (r *RNG) GaussianClusters(k, perCluster, dim int, separation, spread float64) ([]float64, []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	means := make([]float64, k*dim)
	for c := 0; c < k; c++ {
		for d := 0; d < dim; d++ {
			// Alternate the sign per dimension so means are not collinear.
			offset := float64(c) * separation
			if d%2 == 1 && c%2 == 1 {
				offset = -offset
			}
			means[c*dim+d] = offset
		}
	}

	data := make([]float64, 0, k*perCluster*dim)
	for c := 0; c < k; c++ {
		for i := 0; i < perCluster; i++ {
			for d := 0; d < dim; d++ {
				data = append(data, means[c*dim+d]+r.rand.NormFloat64()*spread)
			}
		}
	}
	return data, means
}

// Flat returns a single-channel image filled with value.
func Flat(h, w int, value float64) *imageio.Image {
	pix := make([]float64, h*w)
	for i := range pix {
		pix[i] = value
	}
	return mustImage(h, w, 1, pix)
}

// Squares returns a black image with bright size×size squares on a regular
// grid. Every square contributes four strong corners.
func Squares(h, w, size int) *imageio.Image {
	pix := make([]float64, h*w)
	step := size * 3
	for top := size; top+size <= h-size; top += step {
		for left := size; left+size <= w-size; left += step {
			for y := top; y < top+size; y++ {
				for x := left; x < left+size; x++ {
					pix[y*w+x] = 1
				}
			}
		}
	}
	return mustImage(h, w, 1, pix)
}

// RGBSquares returns Squares rendered in three identical channels.
func RGBSquares(h, w, size int) *imageio.Image {
	gray := Squares(h, w, size)
	pix := make([]float64, 0, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gray.At(y, x, 0)
			pix = append(pix, v, v, v)
		}
	}
	return mustImage(h, w, 3, pix)
}

// Noise returns a single-channel image with uniform noise.
func (r *RNG) Noise(h, w int) *imageio.Image {
	pix := make([]float64, h*w)
	r.FillUniform(pix)
	return mustImage(h, w, 1, pix)
}

func mustImage(h, w, c int, pix []float64) *imageio.Image {
	img, err := imageio.New(h, w, c, pix)
	if err != nil {
		panic(err)
	}
	return img
}
