package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyImage is returned for images without pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrInvalidChannels is returned for channel counts other than 1 or 3.
	ErrInvalidChannels = errors.New("image must have 1 or 3 channels")
)

// Luminance weights used by Gray.
const (
	weightR = 0.2125
	weightG = 0.7154
	weightB = 0.0721
)

// Image is an immutable array of normalized pixel intensities.
// Pixels are stored row-major with interleaved channels.
type Image struct {
	height   int
	width    int
	channels int
	pix      []float64
}

// New creates an Image from row-major interleaved pixels in [0, 1].
// The pixel slice is copied.
func New(height, width, channels int, pix []float64) (*Image, error) {
	if height <= 0 || width <= 0 {
		return nil, ErrEmptyImage
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChannels, channels)
	}
	if len(pix) != height*width*channels {
		return nil, fmt.Errorf("pixel count mismatch: expected %d, got %d", height*width*channels, len(pix))
	}

	cp := make([]float64, len(pix))
	copy(cp, pix)
	return &Image{height: height, width: width, channels: channels, pix: cp}, nil
}

// FromGray creates a single-channel Image from a matrix.
func FromGray(m mat.Matrix) (*Image, error) {
	r, c := m.Dims()
	pix := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pix = append(pix, m.At(i, j))
		}
	}
	return New(r, c, 1, pix)
}

// FromImage converts a decoded image.Image. Grayscale sources yield one
// channel, everything else three (alpha is dropped).
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	h, w := b.Dy(), b.Dx()
	if h <= 0 || w <= 0 {
		return nil, ErrEmptyImage
	}

	switch src.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		pix := make([]float64, h*w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				pix[y*w+x] = float64(g.Y) / 0xffff
			}
		}
		return &Image{height: h, width: w, channels: 1, pix: pix}, nil
	}

	pix := make([]float64, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			o := (y*w + x) * 3
			pix[o] = float64(r) / 0xffff
			pix[o+1] = float64(g) / 0xffff
			pix[o+2] = float64(bl) / 0xffff
		}
	}
	return &Image{height: h, width: w, channels: 3, pix: pix}, nil
}

// Height returns the number of rows.
func (im *Image) Height() int { return im.height }

// Width returns the number of columns.
func (im *Image) Width() int { return im.width }

// Channels returns 1 for grayscale and 3 for RGB images.
func (im *Image) Channels() int { return im.channels }

// At returns the intensity of channel ch at (row, col).
func (im *Image) At(row, col, ch int) float64 {
	return im.pix[(row*im.width+col)*im.channels+ch]
}

// Gray returns the single-channel intensity matrix. RGB images are converted
// with luminance weights; grayscale images are copied.
func (im *Image) Gray() *mat.Dense {
	out := mat.NewDense(im.height, im.width, nil)
	for r := 0; r < im.height; r++ {
		row := out.RawRowView(r)
		for c := range row {
			if im.channels == 1 {
				row[c] = im.pix[r*im.width+c]
				continue
			}
			o := (r*im.width + c) * 3
			row[c] = weightR*im.pix[o] + weightG*im.pix[o+1] + weightB*im.pix[o+2]
		}
	}
	return out
}

// ToRGBA64 renders the image back into a standard library image.
func (im *Image) ToRGBA64() *image.RGBA64 {
	out := image.NewRGBA64(image.Rect(0, 0, im.width, im.height))
	for r := 0; r < im.height; r++ {
		for c := 0; c < im.width; c++ {
			var rv, gv, bv float64
			if im.channels == 1 {
				rv = im.pix[r*im.width+c]
				gv, bv = rv, rv
			} else {
				o := (r*im.width + c) * 3
				rv, gv, bv = im.pix[o], im.pix[o+1], im.pix[o+2]
			}
			out.SetRGBA64(c, r, color.RGBA64{R: to16(rv), G: to16(gv), B: to16(bv), A: 0xffff})
		}
	}
	return out
}

func to16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
