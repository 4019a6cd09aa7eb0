// Package inference defines the two-operation external worker interface
// the face indexing pipeline delegates neural inference to (§6.1), so the
// core stays testable against mock tensors regardless of which runtime
// backs it in production.
package inference

import "context"

// DetectorRows and DetectorCols describe the fixed-shape detector output
// tensor (§4.2).
const DetectorRows = 25200
const DetectorCols = 16

// EmbeddingDim is the fixed embedding width (§6.4).
const EmbeddingDim = 192

// Detector runs face detection over a raw RGBA pixel buffer and returns
// the flat [DetectorRows, DetectorCols] tensor, row-major. Preprocessing
// (letterbox to 640x640, normalization) happens inside the implementation.
type Detector interface {
	DetectFaces(ctx context.Context, pixelRGBA []byte, height, width int) ([]float32, error)
}

// Embedder computes embeddings for a batch of pre-aligned, pre-normalized
// 112x112x3 face crops (channel-last, row-major, as produced by package
// warp) and returns a flat [n, EmbeddingDim] tensor.
type Embedder interface {
	ComputeFaceEmbeddings(ctx context.Context, alignedFaces []float32, n int) ([]float32, error)
}
