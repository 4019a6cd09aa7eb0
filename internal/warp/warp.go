// Package warp applies a 3x3 affine matrix to a source RGBA image to
// produce a fixed-size aligned face crop via bilinear resampling.
package warp

import (
	"errors"
	"math"

	"github.com/your-org/faceindex/internal/align"
)

// OutputSize is the fixed aligned-crop dimension (matches align.CropSize).
const OutputSize = align.CropSize

// Channels is the number of channels per output pixel (RGB).
const Channels = 3

// MeanNorm and StdNorm define the per-channel normalization applied while
// sampling: out = (pixel - MeanNorm) / StdNorm. This is the convention the
// ArcFace-style embedding model in this pipeline was trained with.
const MeanNorm = 127.5
const StdNorm = 127.5

// ErrInvalidSource is returned when the source buffer does not match
// width*height*4 (RGBA).
var ErrInvalidSource = errors.New("warp: source buffer size does not match width*height*4")

// Source is a decoded RGBA image: Pix is row-major, 4 bytes per pixel.
type Source struct {
	Pix    []byte
	Width  int
	Height int
}

// Face produces one OutputSize x OutputSize x Channels crop (channel-last,
// row-major floats) by applying the inverse of the given affine matrix to
// each output pixel's center and bilinearly sampling src, with edge-clamp
// for out-of-range samples.
func Face(src Source, affine [3][3]float64) ([]float32, error) {
	if len(src.Pix) != src.Width*src.Height*4 {
		return nil, ErrInvalidSource
	}

	inv, ok := invertAffine(affine)
	if !ok {
		return nil, errors.New("warp: affine matrix is not invertible")
	}

	out := make([]float32, OutputSize*OutputSize*Channels)

	for v := 0; v < OutputSize; v++ {
		for u := 0; u < OutputSize; u++ {
			// Half-pixel offset centers the sample on the output pixel.
			sx := inv[0][0]*(float64(u)+0.5) + inv[0][1]*(float64(v)+0.5) + inv[0][2]
			sy := inv[1][0]*(float64(u)+0.5) + inv[1][1]*(float64(v)+0.5) + inv[1][2]

			r, g, b := bilinearSample(src, sx, sy)

			idx := (v*OutputSize + u) * Channels
			out[idx+0] = float32((r - MeanNorm) / StdNorm)
			out[idx+1] = float32((g - MeanNorm) / StdNorm)
			out[idx+2] = float32((b - MeanNorm) / StdNorm)
		}
	}

	return out, nil
}

// Batch fills a contiguous [len(affines), OutputSize, OutputSize, Channels]
// buffer, one crop per affine matrix, in order.
func Batch(src Source, affines [][3][3]float64) ([]float32, error) {
	faceLen := OutputSize * OutputSize * Channels
	out := make([]float32, len(affines)*faceLen)

	for i, a := range affines {
		crop, err := Face(src, a)
		if err != nil {
			return nil, err
		}
		copy(out[i*faceLen:(i+1)*faceLen], crop)
	}

	return out, nil
}

func bilinearSample(src Source, x, y float64) (r, g, b float64) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1

	fx := x - float64(x0)
	fy := y - float64(y0)

	r00, g00, b00 := pixelAt(src, x0, y0)
	r10, g10, b10 := pixelAt(src, x1, y0)
	r01, g01, b01 := pixelAt(src, x0, y1)
	r11, g11, b11 := pixelAt(src, x1, y1)

	r = lerp2(r00, r10, r01, r11, fx, fy)
	g = lerp2(g00, g10, g01, g11, fx, fy)
	b = lerp2(b00, b10, b01, b11, fx, fy)
	return r, g, b
}

func lerp2(v00, v10, v01, v11, fx, fy float64) float64 {
	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}

// pixelAt returns the RGB channels for (x,y), clamping to the source's
// valid pixel range at the edges.
func pixelAt(src Source, x, y int) (r, g, b float64) {
	if x < 0 {
		x = 0
	}
	if x >= src.Width {
		x = src.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= src.Height {
		y = src.Height - 1
	}

	off := (y*src.Width + x) * 4
	return float64(src.Pix[off]), float64(src.Pix[off+1]), float64(src.Pix[off+2])
}

// invertAffine inverts a 3x3 affine matrix whose bottom row is [0,0,1].
func invertAffine(m [3][3]float64) ([3][3]float64, bool) {
	a, b, tx := m[0][0], m[0][1], m[0][2]
	c, d, ty := m[1][0], m[1][1], m[1][2]

	det := a*d - b*c
	if det == 0 {
		return [3][3]float64{}, false
	}

	ia := d / det
	ib := -b / det
	ic := -c / det
	id := a / det

	itx := -(ia*tx + ib*ty)
	ity := -(ic*tx + id*ty)

	return [3][3]float64{
		{ia, ib, itx},
		{ic, id, ity},
		{0, 0, 1},
	}, true
}
