// Package blur scores face-crop sharpness as the variance of a
// direction-conditioned Laplacian over a grayscale, reflection-padded crop.
package blur

import "github.com/your-org/faceindex/internal/geometry"

// CropSize is the fixed grayscale crop dimension (matches the aligned RGB
// crop from package warp/align).
const CropSize = 112

// stripWidth is the total number of columns removed from the 112-wide
// image before padding and convolution (§4.6).
const stripWidth = 56

// Direction classifies which side of the face the nose points toward,
// which determines how the crop is cut before the Laplacian is computed.
type Direction int

const (
	DirectionStraight Direction = iota
	DirectionLeft
	DirectionRight
)

// landmarks is the fixed five-point order: left-eye, right-eye, nose,
// left-mouth, right-mouth.
type landmarkSet = [5]geometry.Point

// ClassifyDirection implements the face-direction rules of §4.6.
func ClassifyDirection(lm landmarkSet) Direction {
	leftEye, rightEye, nose, leftMouth, rightMouth := lm[0], lm[1], lm[2], lm[3], lm[4]

	faceIsUpright := maxF(leftEye.Y, rightEye.Y)+0.5*absF(rightEye.Y-leftEye.Y) < nose.Y &&
		nose.Y+0.5*absF(rightMouth.Y-leftMouth.Y) < minF(leftMouth.Y, rightMouth.Y)

	noseStickingOutLeft := nose.X < minF(leftEye.X, rightEye.X) && nose.X < minF(leftMouth.X, rightMouth.X)
	noseStickingOutRight := nose.X > maxF(leftEye.X, rightEye.X) && nose.X > maxF(leftMouth.X, rightMouth.X)

	noseCloseToLeftEye := absF(nose.X-leftEye.X) < 0.2*absF(rightEye.X-leftEye.X)
	noseCloseToRightEye := absF(nose.X-rightEye.X) < 0.2*absF(rightEye.X-leftEye.X)

	switch {
	case noseStickingOutLeft || (faceIsUpright && noseCloseToLeftEye):
		return DirectionLeft
	case noseStickingOutRight || (faceIsUpright && noseCloseToRightEye):
		return DirectionRight
	default:
		return DirectionStraight
	}
}

// Score computes the blur metric for a CropSize x CropSize grayscale
// image (row-major, one float per pixel), given the face direction that
// determines the column strip removed before convolution. Larger values
// indicate sharper faces; a perfectly flat image scores 0.
func Score(gray []float64, direction Direction) float64 {
	cropped := cropColumns(gray, CropSize, CropSize, direction)
	croppedCols := CropSize - stripWidth
	padded, paddedRows, paddedCols := reflectPad(cropped, CropSize, croppedCols)
	return laplacianVariance(padded, paddedRows, paddedCols)
}

// Grayscale converts a channel-last RGB crop (as produced by package warp,
// un-normalized back to [0,255] pixel values) into a single-channel image
// using the standard luminance formula.
func Grayscale(rgb []float64, width, height int) []float64 {
	out := make([]float64, width*height)
	for i := 0; i < width*height; i++ {
		r := rgb[i*3+0]
		g := rgb[i*3+1]
		b := rgb[i*3+2]
		out[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return out
}

// cropColumns removes stripWidth columns total from a rows x cols image,
// split per the face direction, and returns the narrower image.
func cropColumns(img []float64, rows, cols int, direction Direction) []float64 {
	var left, right int
	switch direction {
	case DirectionLeft:
		left, right = 0, stripWidth
	case DirectionRight:
		left, right = stripWidth, 0
	default:
		left, right = stripWidth/2, stripWidth/2
	}

	newCols := cols - left - right
	out := make([]float64, rows*newCols)
	for y := 0; y < rows; y++ {
		for x := 0; x < newCols; x++ {
			out[y*newCols+x] = img[y*cols+(x+left)]
		}
	}
	return out
}

// reflectPad pads a rows x cols image with one row/column on every side
// using a one-step (non-mirrored) reflection: pad[0][j] = pad[2][j] and
// pad[N+1][j] = pad[N-1][j], and symmetrically for columns (§4.6, §9 Open
// Question (a)). paddedCols = cols+2, matching the original
// implementation's `numCols + 2 - stripWidth` arithmetic once numCols is
// taken as the pre-crop width (112): 112+2-56 == (112-56)+2, so no extra
// column is actually allocated here — see DESIGN.md.
func reflectPad(img []float64, rows, cols int) (out []float64, paddedRows, paddedCols int) {
	paddedRows = rows + 2
	paddedCols = cols + 2

	out = make([]float64, paddedRows*paddedCols)

	set := func(y, x int, v float64) {
		out[y*paddedCols+x] = v
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			set(y+1, x+1, img[y*cols+x])
		}
	}

	// Reflect rows: pad[0][j] = pad[2][j]; pad[N+1][j] = pad[N-1][j].
	for x := 0; x < paddedCols; x++ {
		set(0, x, rowAt(out, paddedCols, 2, x))
		set(paddedRows-1, x, rowAt(out, paddedCols, paddedRows-3, x))
	}
	// Reflect columns the same one-step way.
	for y := 0; y < paddedRows; y++ {
		set(y, 0, rowAt(out, paddedCols, y, 2))
		set(y, paddedCols-1, rowAt(out, paddedCols, y, paddedCols-3))
	}

	return out, paddedRows, paddedCols
}

func rowAt(img []float64, cols, y, x int) float64 {
	if y < 0 || x < 0 || x >= cols {
		return 0
	}
	return img[y*cols+x]
}

// laplacianVariance convolves padded with the four-connected Laplacian
// kernel [[0,1,0],[1,-4,1],[0,1,0]] over the inner (non-padding) pixels and
// returns the population variance of the result.
func laplacianVariance(padded []float64, rows, cols int) float64 {
	innerRows := rows - 2
	innerCols := cols - 2
	if innerRows <= 0 || innerCols <= 0 {
		return 0
	}

	n := innerRows * innerCols
	values := make([]float64, 0, n)

	for y := 1; y <= rows-2; y++ {
		for x := 1; x <= cols-2; x++ {
			center := padded[y*cols+x]
			up := padded[(y-1)*cols+x]
			down := padded[(y+1)*cols+x]
			left := padded[y*cols+(x-1)]
			right := padded[y*cols+(x+1)]
			values = append(values, up+down+left+right-4*center)
		}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(values))
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
