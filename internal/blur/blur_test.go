package blur

import (
	"testing"

	"github.com/your-org/faceindex/internal/geometry"
)

func TestScoreConstantImageIsZero(t *testing.T) {
	gray := make([]float64, CropSize*CropSize)
	for i := range gray {
		gray[i] = 128
	}

	for _, dir := range []Direction{DirectionStraight, DirectionLeft, DirectionRight} {
		if got := Score(gray, dir); got != 0 {
			t.Fatalf("Score(constant, %v) = %v, want 0", dir, got)
		}
	}
}

func TestScoreSharperImageHasHigherVariance(t *testing.T) {
	flat := make([]float64, CropSize*CropSize)
	for i := range flat {
		flat[i] = 100
	}

	checker := make([]float64, CropSize*CropSize)
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			if (x+y)%2 == 0 {
				checker[y*CropSize+x] = 0
			} else {
				checker[y*CropSize+x] = 255
			}
		}
	}

	flatScore := Score(flat, DirectionStraight)
	checkerScore := Score(checker, DirectionStraight)

	if checkerScore <= flatScore {
		t.Fatalf("checkerScore = %v, want > flatScore = %v", checkerScore, flatScore)
	}
}

func TestClassifyDirectionLeft(t *testing.T) {
	// Scenario S5.
	lm := [5]geometry.Point{
		{X: 0.3, Y: 0.3},  // left eye
		{X: 0.7, Y: 0.3},  // right eye
		{X: 0.31, Y: 0.55}, // nose
		{X: 0.35, Y: 0.8}, // left mouth
		{X: 0.65, Y: 0.8}, // right mouth
	}

	if got := ClassifyDirection(lm); got != DirectionLeft {
		t.Fatalf("ClassifyDirection() = %v, want DirectionLeft", got)
	}
}

func TestClassifyDirectionStraight(t *testing.T) {
	lm := [5]geometry.Point{
		{X: 0.3, Y: 0.3},
		{X: 0.7, Y: 0.3},
		{X: 0.5, Y: 0.55},
		{X: 0.35, Y: 0.8},
		{X: 0.65, Y: 0.8},
	}

	if got := ClassifyDirection(lm); got != DirectionStraight {
		t.Fatalf("ClassifyDirection() = %v, want DirectionStraight", got)
	}
}

func TestGrayscale(t *testing.T) {
	rgb := []float64{255, 255, 255, 0, 0, 0}
	got := Grayscale(rgb, 2, 1)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] < 254 || got[0] > 255 {
		t.Fatalf("got[0] = %v, want ~255", got[0])
	}
	if got[1] != 0 {
		t.Fatalf("got[1] = %v, want 0", got[1])
	}
}
