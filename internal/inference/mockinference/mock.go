// Package mockinference provides scripted Detector and Embedder
// implementations for deterministic pipeline tests, standing in for the
// ONNX Runtime models in internal/inference.
package mockinference

import (
	"context"
	"fmt"

	"github.com/your-org/faceindex/internal/inference"
)

// Detector returns a fixed detector tensor regardless of input, recording
// the last call's arguments for assertions.
type Detector struct {
	Tensor []float32

	LastHeight int
	LastWidth  int
	CallCount  int
}

func (d *Detector) DetectFaces(ctx context.Context, pixelRGBA []byte, height, width int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.LastHeight = height
	d.LastWidth = width
	d.CallCount++
	if len(d.Tensor) != inference.DetectorRows*inference.DetectorCols {
		return nil, fmt.Errorf("mock detector tensor has length %d, want %d", len(d.Tensor), inference.DetectorRows*inference.DetectorCols)
	}
	return d.Tensor, nil
}

// Embedder returns a deterministic embedding per crop: EmbeddingValue
// repeated EmbeddingDim times, scaled by one plus the crop's index within
// the batch, so tests can assert per-face correspondence without a real model.
type Embedder struct {
	EmbeddingValue float32

	LastN     int
	CallCount int
}

func (e *Embedder) ComputeFaceEmbeddings(ctx context.Context, alignedFaces []float32, n int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.LastN = n
	e.CallCount++

	out := make([]float32, n*inference.EmbeddingDim)
	for i := 0; i < n; i++ {
		v := e.EmbeddingValue * float32(i+1)
		for j := 0; j < inference.EmbeddingDim; j++ {
			out[i*inference.EmbeddingDim+j] = v
		}
	}
	return out, nil
}

// NewRow builds one 16-column detector output row from the values package
// detect.Decode expects: score, box center/size, and five landmark pairs,
// all in model-canvas pixel coordinates.
func NewRow(score, xc, yc, w, h float32, landmarks [5][2]float32) []float32 {
	row := make([]float32, 16)
	row[0] = xc
	row[1] = yc
	row[2] = w
	row[3] = h
	row[4] = score
	for i, lm := range landmarks {
		row[5+i*2] = lm[0]
		row[6+i*2] = lm[1]
	}
	return row
}
