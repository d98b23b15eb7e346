package feature

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Keypoint is a detected corner location.
type Keypoint struct {
	Row      int
	Col      int
	Response float64
}

// KeypointOrder controls the channel order of detected keypoints.
type KeypointOrder int

const (
	// OrderByPosition sorts keypoints by (row, col).
	OrderByPosition KeypointOrder = iota
	// OrderByResponse keeps the strongest keypoints first.
	OrderByResponse
)

func (o KeypointOrder) String() string {
	switch o {
	case OrderByPosition:
		return "position"
	case OrderByResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Bresenham circle of radius 3, clockwise from the top.
var (
	circleRows = [16]int{-3, -3, -2, -1, 0, 1, 2, 3, 3, 3, 2, 1, 0, -1, -2, -3}
	circleCols = [16]int{0, 1, 2, 3, 3, 3, 2, 1, 0, -1, -2, -3, -3, -3, -2, -1}
)

const (
	similar int8 = iota
	brighter
	darker
)

// CornerFAST computes the FAST corner response of a grayscale image.
//
// A pixel p is a corner when at least n contiguous pixels on its radius-3
// circle are all brighter than p+threshold or all darker than p-threshold.
// The response of a corner is the larger of the summed brighter and darker
// differences; non-corners (and the 3-pixel border) are zero.
func CornerFAST(img mat.Matrix, n int, threshold float64) *mat.Dense {
	rows, cols := img.Dims()
	resp := mat.NewDense(rows, cols, nil)

	var (
		bins        [16]int8
		intensities [16]float64
	)

	for i := 3; i < rows-3; i++ {
		for j := 3; j < cols-3; j++ {
			p := img.At(i, j)
			lower := p - threshold
			upper := p + threshold

			for k := 0; k < 16; k++ {
				v := img.At(i+circleRows[k], j+circleCols[k])
				intensities[k] = v
				switch {
				case v > upper:
					bins[k] = brighter
				case v < lower:
					bins[k] = darker
				default:
					bins[k] = similar
				}
			}

			if !hasArc(&bins, brighter, n) && !hasArc(&bins, darker, n) {
				continue
			}

			var sumB, sumD float64
			for k := 0; k < 16; k++ {
				switch bins[k] {
				case brighter:
					sumB += intensities[k] - p
				case darker:
					sumD += p - intensities[k]
				}
			}
			resp.Set(i, j, math.Max(sumB, sumD))
		}
	}

	return resp
}

// hasArc reports whether bins contains n circularly contiguous entries equal
// to state.
func hasArc(bins *[16]int8, state int8, n int) bool {
	if n <= 0 {
		return false
	}
	run := 0
	for k := 0; k < 16+n-1; k++ {
		if bins[k%16] == state {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// CornerPeaks finds local maxima of a corner response map.
//
// A candidate must lie at least minDistance pixels from the border, be the
// maximum of its (2*minDistance+1)² neighbourhood and exceed
// max(min(resp), thresholdRel*max(resp)). Candidates are visited strongest
// first (row-major on ties); a candidate within Chebyshev distance
// minDistance of an already accepted peak is dropped.
func CornerPeaks(resp mat.Matrix, minDistance int, thresholdRel float64, order KeypointOrder) []Keypoint {
	rows, cols := resp.Dims()
	if rows == 0 || cols == 0 {
		return nil
	}
	if minDistance < 1 {
		minDistance = 1
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := resp.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	threshold := math.Max(lo, thresholdRel*hi)

	var candidates []Keypoint
	for i := minDistance; i < rows-minDistance; i++ {
		for j := minDistance; j < cols-minDistance; j++ {
			v := resp.At(i, j)
			if v <= threshold {
				continue
			}
			if v < windowMax(resp, i, j, minDistance) {
				continue
			}
			candidates = append(candidates, Keypoint{Row: i, Col: j, Response: v})
		}
	}

	// Stable on the row-major scan order.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Response > candidates[b].Response
	})

	peaks := make([]Keypoint, 0, len(candidates))
	for _, c := range candidates {
		if tooClose(peaks, c, minDistance) {
			continue
		}
		peaks = append(peaks, c)
	}

	if order == OrderByPosition {
		sort.Slice(peaks, func(a, b int) bool {
			if peaks[a].Row != peaks[b].Row {
				return peaks[a].Row < peaks[b].Row
			}
			return peaks[a].Col < peaks[b].Col
		})
	}
	return peaks
}

func windowMax(m mat.Matrix, r, c, radius int) float64 {
	rows, cols := m.Dims()
	best := math.Inf(-1)
	for i := max(0, r-radius); i <= min(rows-1, r+radius); i++ {
		for j := max(0, c-radius); j <= min(cols-1, c+radius); j++ {
			best = math.Max(best, m.At(i, j))
		}
	}
	return best
}

func tooClose(peaks []Keypoint, c Keypoint, minDistance int) bool {
	for _, p := range peaks {
		dr := p.Row - c.Row
		if dr < 0 {
			dr = -dr
		}
		dc := p.Col - c.Col
		if dc < 0 {
			dc = -dc
		}
		if max(dr, dc) <= minDistance {
			return true
		}
	}
	return false
}
