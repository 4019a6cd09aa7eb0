// Package detect decodes the fixed-shape detector output tensor into
// candidate face detections in the model's 640x640 canvas frame.
package detect

import (
	"fmt"
	"strconv"

	"github.com/your-org/faceindex/internal/geometry"
)

// Rows is the fixed number of candidate rows the detector emits per image.
const Rows = 25200

// Cols is the fixed number of floats per row.
const Cols = 16

// ScoreThreshold is the minimum detection score to keep a row (§4.2, §6.4).
const ScoreThreshold = 0.7

// Candidate is one accepted detection in the model canvas coordinate frame.
type Candidate struct {
	Box       geometry.Box
	Score     float64
	Landmarks [5]geometry.Point
}

// ErrMalformedOutput is returned when the tensor length does not match
// Rows*Cols.
var ErrMalformedOutput = fmt.Errorf("detect: tensor length must be %d", Rows*Cols)

// Decode parses a flat row-major [Rows, Cols] buffer into candidate
// detections, keeping only rows whose score is >= ScoreThreshold and
// preserving row order among the accepted rows. Column layout is:
//
//	0: x-center, 1: y-center, 2: width, 3: height, 4: score
//	5-6, 7-8, 9-10, 11-12, 13-14: left-eye, right-eye, nose, left-mouth, right-mouth
//	15: ignored
func Decode(tensor []float32) ([]Candidate, error) {
	if len(tensor) != Rows*Cols {
		return nil, ErrMalformedOutput
	}

	var out []Candidate
	for i := 0; i < Rows; i++ {
		row := tensor[i*Cols : i*Cols+Cols]
		// Compare in float32, the tensor's own precision, so a score of
		// exactly 0.7 is accepted; then widen via the shortest decimal form
		// so that score reads back as 0.7 rather than 0.699999988.
		if row[4] < ScoreThreshold {
			continue
		}
		score, _ := strconv.ParseFloat(strconv.FormatFloat(float64(row[4]), 'g', -1, 32), 64)

		xc, yc := float64(row[0]), float64(row[1])
		w, h := float64(row[2]), float64(row[3])

		var lm [5]geometry.Point
		for li := 0; li < 5; li++ {
			lm[li] = geometry.Point{
				X: float64(row[5+li*2]),
				Y: float64(row[5+li*2+1]),
			}
		}

		out = append(out, Candidate{
			Box: geometry.Box{
				X:      xc - w/2,
				Y:      yc - h/2,
				Width:  w,
				Height: h,
			},
			Score:     score,
			Landmarks: lm,
		})
	}

	return out, nil
}
