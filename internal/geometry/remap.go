package geometry

import "math"

// ModelCanvasSize is the detector's fixed square input canvas (pixels).
const ModelCanvasSize = 640

// Remap transforms a box from one coordinate frame (inBox) into another
// (toBox). Both frames are rectangles in some shared outer space (e.g. the
// 640x640 model canvas). Each coordinate is first translated by
// (toBox origin - inBox origin) and then scaled by toBox size / inBox size;
// with toBox at the origin, as Letterbox returns it, this expresses the box
// relative to inBox in toBox's scale.
func Remap(b Box, inBox, toBox Box) Box {
	scaleX := toBox.Width / inBox.Width
	scaleY := toBox.Height / inBox.Height
	translateX := toBox.X - inBox.X
	translateY := toBox.Y - inBox.Y

	return Box{
		X:      (b.X + translateX) * scaleX,
		Y:      (b.Y + translateY) * scaleY,
		Width:  b.Width * scaleX,
		Height: b.Height * scaleY,
	}
}

// RemapLandmarks applies the same inBox -> toBox transform to a set of
// points.
func RemapLandmarks(points []Point, inBox, toBox Box) []Point {
	scaleX := toBox.Width / inBox.Width
	scaleY := toBox.Height / inBox.Height
	translateX := toBox.X - inBox.X
	translateY := toBox.Y - inBox.Y

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{
			X: (p.X + translateX) * scaleX,
			Y: (p.Y + translateY) * scaleY,
		}
	}
	return out
}

// Letterbox computes the centered sub-rectangle that an image of size dims
// occupies inside the square ModelCanvasSize x ModelCanvasSize canvas when
// resized preserving aspect ratio (the "inBox" of Remap), and the full
// source-image rectangle that detections must ultimately land in (the
// "toBox" of Remap).
func Letterbox(dims Dimensions) (inBox, toBox Box) {
	scale := math.Min(float64(ModelCanvasSize)/float64(dims.Width), float64(ModelCanvasSize)/float64(dims.Height))

	sw := clamp(math.Round(float64(dims.Width)*scale), 0, ModelCanvasSize)
	sh := clamp(math.Round(float64(dims.Height)*scale), 0, ModelCanvasSize)

	inBox = Box{
		X:      (ModelCanvasSize - sw) / 2,
		Y:      (ModelCanvasSize - sh) / 2,
		Width:  sw,
		Height: sh,
	}
	toBox = Box{
		X:      0,
		Y:      0,
		Width:  float64(dims.Width),
		Height: float64(dims.Height),
	}
	return inBox, toBox
}
