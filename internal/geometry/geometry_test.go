package geometry

import "testing"

func TestNormalizeBoxByDims(t *testing.T) {
	b := Box{X: 10, Y: 20, Width: 30, Height: 40}
	dims := Dimensions{Width: 100, Height: 100}

	got := NormalizeBoxByDims(b, dims)
	want := Box{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}

	if got != want {
		t.Fatalf("NormalizeBoxByDims() = %+v, want %+v", got, want)
	}
}

func TestLetterboxS4(t *testing.T) {
	// Scenario S4: 800x400 image.
	inBox, toBox := Letterbox(Dimensions{Width: 800, Height: 400})

	wantIn := Box{X: 0, Y: 160, Width: 640, Height: 320}
	if inBox != wantIn {
		t.Fatalf("inBox = %+v, want %+v", inBox, wantIn)
	}

	wantTo := Box{X: 0, Y: 0, Width: 800, Height: 400}
	if toBox != wantTo {
		t.Fatalf("toBox = %+v, want %+v", toBox, wantTo)
	}

	// A detector box at (320, 160, 64, 64) in the canvas remaps to
	// (400, 0, 80, 80) in source coordinates.
	canvasBox := Box{X: 320, Y: 160, Width: 64, Height: 64}
	got := Remap(canvasBox, inBox, toBox)
	want := Box{X: 400, Y: 0, Width: 80, Height: 80}
	if got != want {
		t.Fatalf("Remap() = %+v, want %+v", got, want)
	}
}

func TestRemapRoundTrip(t *testing.T) {
	// Remapping then inverse-remapping a box recovers the original
	// within floating-point epsilon (§8 universal property 6).
	inBox := Box{X: 3, Y: 7, Width: 200, Height: 150}
	toBox := Box{X: 0, Y: 0, Width: 1024, Height: 768}

	original := Box{X: 42, Y: 11, Width: 30, Height: 25}
	remapped := Remap(original, inBox, toBox)
	// Remap translates before it scales, so the inverse maps from toBox
	// into a frame of inBox's size whose origin is inBox's origin in
	// toBox units (toBox sits at the origin here).
	inverseTo := Box{
		X:      inBox.X * toBox.Width / inBox.Width,
		Y:      inBox.Y * toBox.Height / inBox.Height,
		Width:  inBox.Width,
		Height: inBox.Height,
	}
	back := Remap(remapped, toBox, inverseTo)

	const eps = 1e-9
	if absDiff(back.X, original.X) > eps ||
		absDiff(back.Y, original.Y) > eps ||
		absDiff(back.Width, original.Width) > eps ||
		absDiff(back.Height, original.Height) > eps {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, original)
	}
}

func TestCentroid(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 2, Y: 4}, {X: 4, Y: 8}}
	got := Centroid(pts)
	want := Point{X: 2, Y: 4}
	if got != want {
		t.Fatalf("Centroid() = %+v, want %+v", got, want)
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
