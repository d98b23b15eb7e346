package feature

import (
	"fmt"

	"github.com/hupe1980/bovw/imageio"
	"gonum.org/v1/gonum/mat"
)

// PatchSize is the side length of the square patch cut around a keypoint.
const PatchSize = 7

// Params configures an Extractor.
type Params struct {
	// Alpha is the number of keypoint slots, and therefore output channels.
	Alpha int
	// Threshold is the FAST intensity threshold on a [0, 1] gray scale.
	Threshold float64
	// FastN is the minimum arc length of the FAST test (1..16).
	FastN int
	// MinDistance is the minimum separation between corner peaks.
	MinDistance int
	// PeakThresholdRel is the relative response threshold of corner peaks.
	PeakThresholdRel float64
	Order            KeypointOrder
	HOG              HOGParams
}

// DefaultParams returns the default extraction parameters.
func DefaultParams() Params {
	return Params{
		Alpha:            5,
		Threshold:        0.15,
		FastN:            7,
		MinDistance:      1,
		PeakThresholdRel: 0.1,
		Order:            OrderByPosition,
		HOG:              DefaultHOGParams(),
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive, got %d", p.Alpha)
	}
	if p.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %g", p.Threshold)
	}
	if p.FastN < 1 || p.FastN > 16 {
		return fmt.Errorf("fast n must be in [1,16], got %d", p.FastN)
	}
	if p.MinDistance < 1 {
		return fmt.Errorf("min distance must be at least 1, got %d", p.MinDistance)
	}
	if p.PeakThresholdRel < 0 || p.PeakThresholdRel > 1 {
		return fmt.Errorf("peak threshold rel must be in [0,1], got %g", p.PeakThresholdRel)
	}
	if p.Order != OrderByPosition && p.Order != OrderByResponse {
		return fmt.Errorf("unknown keypoint order %d", p.Order)
	}
	if err := p.HOG.Validate(); err != nil {
		return err
	}
	if !p.HOG.fits(PatchSize, PatchSize) {
		return fmt.Errorf("%w: hog block does not fit a %dx%d patch", ErrPatchTooSmall, PatchSize, PatchSize)
	}
	return nil
}

// Extractor turns images into PatchSize×PatchSize×Alpha filter response
// tensors. It is immutable and safe for concurrent use.
type Extractor struct {
	params Params
}

// NewExtractor validates p and returns an Extractor.
func NewExtractor(p Params) (*Extractor, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extractor params: %w", err)
	}
	return &Extractor{params: p}, nil
}

// Params returns the extractor parameters.
func (e *Extractor) Params() Params { return e.params }

// Alpha returns the number of output channels.
func (e *Extractor) Alpha() int { return e.params.Alpha }

// Keypoints detects the corner peaks of img in channel order.
func (e *Extractor) Keypoints(img *imageio.Image) []Keypoint {
	return e.keypoints(img.Gray())
}

func (e *Extractor) keypoints(gray *mat.Dense) []Keypoint {
	resp := CornerFAST(gray, e.params.FastN, e.params.Threshold)
	return CornerPeaks(resp, e.params.MinDistance, e.params.PeakThresholdRel, e.params.Order)
}

// Extract computes the filter response tensor of img. The result always has
// Alpha channels: keypoint slots without a keypoint, or whose patch would
// cross the image border, contribute the map of an all-zero patch.
func (e *Extractor) Extract(img *imageio.Image) *Tensor {
	gray := img.Gray()
	kps := e.keypoints(gray)

	out := NewTensor(PatchSize, PatchSize, e.params.Alpha)
	for i := 0; i < e.params.Alpha; i++ {
		var kp *Keypoint
		if i < len(kps) {
			kp = &kps[i]
		}

		d, err := HOG(patchAt(gray, kp), e.params.HOG)
		if err != nil {
			// Validate guarantees a block fits the patch.
			panic(fmt.Sprintf("feature: hog on validated patch: %v", err))
		}
		if err := out.SetChannel(i, d.Visualization); err != nil {
			panic(fmt.Sprintf("feature: %v", err))
		}
	}
	return out
}

// patchAt returns the PatchSize×PatchSize window anchored at kp covering
// rows [r-3, r+4) and cols [c-3, c+4). A nil keypoint or a window that does
// not fit inside gray yields a zero patch.
func patchAt(gray *mat.Dense, kp *Keypoint) *mat.Dense {
	half := PatchSize / 2
	if kp == nil {
		return mat.NewDense(PatchSize, PatchSize, nil)
	}
	rows, cols := gray.Dims()
	r0, c0 := kp.Row-half, kp.Col-half
	r1, c1 := r0+PatchSize, c0+PatchSize
	if r0 < 0 || c0 < 0 || r1 > rows || c1 > cols {
		return mat.NewDense(PatchSize, PatchSize, nil)
	}
	return mat.DenseCopyOf(gray.Slice(r0, r1, c0, c1))
}
