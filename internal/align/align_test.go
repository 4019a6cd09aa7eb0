package align

import (
	"math"
	"testing"

	"github.com/your-org/faceindex/internal/geometry"
)

// approxFrontalLandmarks is a plausible, non-degenerate detection: the
// template landmarks scaled up and shifted, as if from a face roughly
// 200px wide centered at (300, 300).
func approxFrontalLandmarks() [5]geometry.Point {
	var out [5]geometry.Point
	scale := 200.0
	for i, p := range idealLandmarks {
		out[i] = geometry.Point{
			X: (p.X-0.5)*scale + 300,
			Y: (p.Y-0.5)*scale + 300,
		}
	}
	return out
}

func TestFitRecoversTemplate(t *testing.T) {
	landmarks := approxFrontalLandmarks()

	alignment, err := Fit(landmarks)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// The affine maps into the 112x112 crop's pixels, so the landmarks land
	// on the template denormalized by CropSize.
	const eps = 1e-6
	for i, src := range landmarks {
		got := ApplyAffine(alignment.AffineMatrix, src)
		want := geometry.Point{X: idealLandmarks[i].X * CropSize, Y: idealLandmarks[i].Y * CropSize}
		if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps {
			t.Fatalf("landmark %d: applying affine got %+v, want %+v", i, got, want)
		}
	}
}

func TestFitBoundingBoxIsSquare(t *testing.T) {
	landmarks := approxFrontalLandmarks()

	alignment, err := Fit(landmarks)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if alignment.BoundingBox.Width != alignment.BoundingBox.Height {
		t.Fatalf("bounding box not square: %+v", alignment.BoundingBox)
	}
	if alignment.BoundingBox.Width <= 0 {
		t.Fatalf("bounding box non-positive: %+v", alignment.BoundingBox)
	}
}

func TestFitDegenerateLandmarksError(t *testing.T) {
	var coincident [5]geometry.Point
	for i := range coincident {
		coincident[i] = geometry.Point{X: 50, Y: 50}
	}

	_, err := Fit(coincident)
	if err != ErrDegenerateAlignment {
		t.Fatalf("err = %v, want ErrDegenerateAlignment", err)
	}
}
