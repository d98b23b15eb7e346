package feature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrPatchTooSmall is returned when an image is smaller than one HOG block.
var ErrPatchTooSmall = errors.New("image smaller than one hog block")

const hogEpsilon = 1e-5

// HOGParams configures the histogram of oriented gradients.
type HOGParams struct {
	Orientations  int
	PixelsPerCell [2]int
	CellsPerBlock [2]int
}

// DefaultHOGParams returns 8 orientations, 2×2-pixel cells and 1×1-cell blocks.
func DefaultHOGParams() HOGParams {
	return HOGParams{
		Orientations:  8,
		PixelsPerCell: [2]int{2, 2},
		CellsPerBlock: [2]int{1, 1},
	}
}

// Validate checks the parameters.
func (p HOGParams) Validate() error {
	if p.Orientations <= 0 {
		return fmt.Errorf("orientations must be positive, got %d", p.Orientations)
	}
	if p.PixelsPerCell[0] <= 0 || p.PixelsPerCell[1] <= 0 {
		return fmt.Errorf("pixels per cell must be positive, got %v", p.PixelsPerCell)
	}
	if p.CellsPerBlock[0] <= 0 || p.CellsPerBlock[1] <= 0 {
		return fmt.Errorf("cells per block must be positive, got %v", p.CellsPerBlock)
	}
	return nil
}

// fits reports whether an h×w image holds at least one block.
func (p HOGParams) fits(h, w int) bool {
	return h/p.PixelsPerCell[0] >= p.CellsPerBlock[0] && w/p.PixelsPerCell[1] >= p.CellsPerBlock[1]
}

// Descriptor is the HOG output for one patch.
type Descriptor struct {
	// Features is the L2-Hys block-normalized feature vector.
	Features []float64
	// Visualization renders the cell histograms as oriented line segments
	// and has the same shape as the input.
	Visualization *mat.Dense
}

// HOG computes the histogram of oriented gradients of a grayscale image.
func HOG(img mat.Matrix, p HOGParams) (*Descriptor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, cols := img.Dims()
	if !p.fits(rows, cols) {
		return nil, fmt.Errorf("%w: %dx%d", ErrPatchTooSmall, rows, cols)
	}

	magnitude, orientation := gradients(img)

	cr, cc := p.PixelsPerCell[0], p.PixelsPerCell[1]
	nCellsR, nCellsC := rows/cr, cols/cc
	nOrient := p.Orientations
	binWidth := 180.0 / float64(nOrient)
	area := float64(cr * cc)

	// hist[(r*nCellsC+c)*nOrient+o]
	hist := make([]float64, nCellsR*nCellsC*nOrient)
	for r := 0; r < nCellsR; r++ {
		for c := 0; c < nCellsC; c++ {
			base := (r*nCellsC + c) * nOrient
			for y := r * cr; y < (r+1)*cr; y++ {
				for x := c * cc; x < (c+1)*cc; x++ {
					o := int(orientation[y*cols+x] / binWidth)
					if o >= nOrient {
						o = nOrient - 1
					}
					hist[base+o] += magnitude[y*cols+x] / area
				}
			}
		}
	}

	return &Descriptor{
		Features:      normalizeBlocks(hist, nCellsR, nCellsC, p),
		Visualization: visualize(hist, rows, cols, nCellsR, nCellsC, p),
	}, nil
}

// gradients returns per-pixel magnitude and unsigned orientation in degrees
// [0, 180). Central differences, zero on the border rows/columns.
func gradients(img mat.Matrix) (magnitude, orientation []float64) {
	rows, cols := img.Dims()
	magnitude = make([]float64, rows*cols)
	orientation = make([]float64, rows*cols)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var gr, gc float64
			if y > 0 && y < rows-1 {
				gr = img.At(y+1, x) - img.At(y-1, x)
			}
			if x > 0 && x < cols-1 {
				gc = img.At(y, x+1) - img.At(y, x-1)
			}
			magnitude[y*cols+x] = math.Hypot(gc, gr)

			deg := math.Mod(math.Atan2(gr, gc)*180/math.Pi, 180)
			if deg < 0 {
				deg += 180
			}
			if deg >= 180 {
				deg -= 180
			}
			orientation[y*cols+x] = deg
		}
	}
	return magnitude, orientation
}

func normalizeBlocks(hist []float64, nCellsR, nCellsC int, p HOGParams) []float64 {
	br, bc := p.CellsPerBlock[0], p.CellsPerBlock[1]
	nOrient := p.Orientations
	nBlocksR, nBlocksC := nCellsR-br+1, nCellsC-bc+1

	out := make([]float64, 0, nBlocksR*nBlocksC*br*bc*nOrient)
	block := make([]float64, 0, br*bc*nOrient)

	for r := 0; r < nBlocksR; r++ {
		for c := 0; c < nBlocksC; c++ {
			block = block[:0]
			for i := r; i < r+br; i++ {
				for j := c; j < c+bc; j++ {
					base := (i*nCellsC + j) * nOrient
					block = append(block, hist[base:base+nOrient]...)
				}
			}
			out = append(out, l2Hys(block)...)
		}
	}
	return out
}

func l2Hys(block []float64) []float64 {
	out := make([]float64, len(block))
	copy(out, block)
	scaleL2(out)
	for i := range out {
		if out[i] > 0.2 {
			out[i] = 0.2
		}
	}
	scaleL2(out)
	return out
}

func scaleL2(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum + hogEpsilon*hogEpsilon)
	for i := range v {
		v[i] /= norm
	}
}

func visualize(hist []float64, rows, cols, nCellsR, nCellsC int, p HOGParams) *mat.Dense {
	cr, cc := p.PixelsPerCell[0], p.PixelsPerCell[1]
	nOrient := p.Orientations
	radius := float64(min(cr, cc)/2 - 1)

	dr := make([]float64, nOrient)
	dc := make([]float64, nOrient)
	for o := 0; o < nOrient; o++ {
		mid := math.Pi * (float64(o) + 0.5) / float64(nOrient)
		dr[o] = radius * math.Sin(mid)
		dc[o] = radius * math.Cos(mid)
	}

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < nCellsR; r++ {
		for c := 0; c < nCellsC; c++ {
			centreR := float64(r*cr + cr/2)
			centreC := float64(c*cc + cc/2)
			base := (r*nCellsC + c) * nOrient
			for o := 0; o < nOrient; o++ {
				rr, ccs := line(
					int(centreR-dc[o]), int(centreC+dr[o]),
					int(centreR+dc[o]), int(centreC-dr[o]),
				)
				for i := range rr {
					y, x := rr[i], ccs[i]
					if y < 0 || y >= rows || x < 0 || x >= cols {
						continue
					}
					out.Set(y, x, out.At(y, x)+hist[base+o])
				}
			}
		}
	}
	return out
}

// line rasterizes the segment (r0,c0)-(r1,c1) with Bresenham's algorithm.
func line(r0, c0, r1, c1 int) ([]int, []int) {
	r, c := r0, c0
	dr := abs(r1 - r0)
	dc := abs(c1 - c0)
	sc := -1
	if c1-c > 0 {
		sc = 1
	}
	sr := -1
	if r1-r > 0 {
		sr = 1
	}

	steep := false
	if dr > dc {
		steep = true
		r, c = c, r
		dr, dc = dc, dr
		sr, sc = sc, sr
	}

	d := 2*dr - dc
	rr := make([]int, dc+1)
	cc := make([]int, dc+1)
	for i := 0; i < dc; i++ {
		if steep {
			rr[i], cc[i] = c, r
		} else {
			rr[i], cc[i] = r, c
		}
		for d >= 0 {
			r += sr
			d -= 2 * dc
		}
		c += sc
		d += 2 * dr
	}
	rr[dc], cc[dc] = r1, c1
	return rr, cc
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
