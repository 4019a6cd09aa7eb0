// Package pipeline orchestrates the per-image face indexing pipeline:
// detect -> decode -> remap -> align -> warp + embed + blur -> assemble.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/faceindex/internal/align"
	"github.com/your-org/faceindex/internal/blur"
	"github.com/your-org/faceindex/internal/detect"
	"github.com/your-org/faceindex/internal/faceid"
	"github.com/your-org/faceindex/internal/geometry"
	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/models"
	"github.com/your-org/faceindex/internal/observability"
	"github.com/your-org/faceindex/internal/warp"
)

// BatchSize bounds peak memory and per-call inference duration (§4.8, §6.4).
const BatchSize = 50

// Pipeline wires the two external inference collaborators (§6.1) into the
// deterministic geometry, alignment, warp, blur and face-ID components.
type Pipeline struct {
	detector inference.Detector
	embedder inference.Embedder
}

// New returns a pipeline delegating inference to det and emb. Neither
// collaborator is owned by the pipeline: callers manage their lifecycle.
func New(det inference.Detector, emb inference.Embedder) *Pipeline {
	return &Pipeline{detector: det, embedder: emb}
}

// Image is the raw decoded source the pipeline indexes.
type Image struct {
	PixelRGBA []byte
	Width     int
	Height    int
}

type candidateFace struct {
	faceID    string
	detection models.FaceDetection
	score     float64
	alignment align.Alignment
}

// IndexFaces runs the full per-image pipeline (§4.8) and returns the
// resulting FaceIndex. Any inference or decode failure aborts the whole
// invocation; a degenerate per-face alignment drops only that candidate.
func (p *Pipeline) IndexFaces(ctx context.Context, fileID int64, img Image) (models.FaceIndex, error) {
	dims := geometry.Dimensions{Width: img.Width, Height: img.Height}

	// Step 1: external detector call.
	detectStart := time.Now()
	tensor, err := p.detector.DetectFaces(ctx, img.PixelRGBA, img.Height, img.Width)
	observability.PipelineStageDuration.WithLabelValues("detect").Observe(time.Since(detectStart).Seconds())
	if err != nil {
		return models.FaceIndex{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	// Step 2: decode candidates in model canvas coordinates.
	decodeStart := time.Now()
	candidates, err := detect.Decode(tensor)
	observability.PipelineStageDuration.WithLabelValues("decode").Observe(time.Since(decodeStart).Seconds())
	if err != nil {
		return models.FaceIndex{}, fmt.Errorf("%w: %v", ErrMalformedDetectorOutput, err)
	}

	// Step 3: remap model-canvas coordinates to source pixels.
	inBox, toBox := geometry.Letterbox(dims)

	faces := make([]candidateFace, 0, len(candidates))
	for _, c := range candidates {
		remapStart := time.Now()
		sourceBox := geometry.Remap(c.Box, inBox, toBox)
		sourceLandmarks := geometry.RemapLandmarks(c.Landmarks[:], inBox, toBox)
		var lm [5]geometry.Point
		copy(lm[:], sourceLandmarks)

		// Step 4: faceID from the source-pixel box, before alignment.
		id := faceid.Make(fileID, sourceBox, dims)
		observability.PipelineStageDuration.WithLabelValues("remap").Observe(time.Since(remapStart).Seconds())

		// Step 5: similarity-transform alignment.
		alignStart := time.Now()
		alignment, err := align.Fit(lm)
		observability.PipelineStageDuration.WithLabelValues("align").Observe(time.Since(alignStart).Seconds())
		if err != nil {
			observability.FacesDropped.WithLabelValues("degenerate_alignment").Inc()
			continue
		}

		faces = append(faces, candidateFace{
			faceID: id,
			detection: models.FaceDetection{
				Box:       sourceBox,
				Landmarks: lm,
			},
			score:     c.Score,
			alignment: alignment,
		})
	}

	// Step 6: batch-of-50 warp + embed + blur.
	outFaces := make([]models.Face, 0, len(faces))
	for start := 0; start < len(faces); start += BatchSize {
		end := start + BatchSize
		if end > len(faces) {
			end = len(faces)
		}
		batch := faces[start:end]

		embedded, err := p.embedBatch(ctx, img, batch)
		if err != nil {
			return models.FaceIndex{}, err
		}
		outFaces = append(outFaces, embedded...)
	}

	// Step 7: normalize every detection's box and landmarks to [0,1].
	for i := range outFaces {
		outFaces[i].Detection.Box = geometry.NormalizeBoxByDims(outFaces[i].Detection.Box, dims)
		outFaces[i].Detection.Landmarks = normalizeLandmarksArray(outFaces[i].Detection.Landmarks, dims)
	}

	// Step 8: assemble the final index, faces in decoder emission order.
	return models.FaceIndex{
		Width:  img.Width,
		Height: img.Height,
		Faces:  outFaces,
	}, nil
}

func normalizeLandmarksArray(lm [5]geometry.Point, dims geometry.Dimensions) [5]geometry.Point {
	normalized := geometry.NormalizeLandmarks(lm[:], dims)
	var out [5]geometry.Point
	copy(out[:], normalized)
	return out
}

// embedBatch warps, embeds, and scores blur for one batch of candidate
// faces, in the same order they were detected.
func (p *Pipeline) embedBatch(ctx context.Context, img Image, batch []candidateFace) ([]models.Face, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	affines := make([][3][3]float64, len(batch))
	for i, c := range batch {
		affines[i] = c.alignment.AffineMatrix
	}

	src := warp.Source{Pix: img.PixelRGBA, Width: img.Width, Height: img.Height}
	warpStart := time.Now()
	crops, err := warp.Batch(src, affines)
	observability.PipelineStageDuration.WithLabelValues("warp").Observe(time.Since(warpStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	embedStart := time.Now()
	embeddings, err := p.embedder.ComputeFaceEmbeddings(ctx, crops, len(batch))
	observability.PipelineStageDuration.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(embeddings) != len(batch)*inference.EmbeddingDim {
		return nil, fmt.Errorf("%w: embedder returned %d floats, want %d", ErrInference, len(embeddings), len(batch)*inference.EmbeddingDim)
	}

	out := make([]models.Face, len(batch))
	const cropFloats = 112 * 112 * 3
	for i, c := range batch {
		crop := crops[i*cropFloats : (i+1)*cropFloats]
		blurStart := time.Now()
		gray := grayscaleCrop(crop)
		direction := classifyDirection(c.detection.Landmarks)
		blurScore := blur.Score(gray, direction)
		observability.PipelineStageDuration.WithLabelValues("blur").Observe(time.Since(blurStart).Seconds())

		var embedding [192]float32
		copy(embedding[:], embeddings[i*inference.EmbeddingDim:(i+1)*inference.EmbeddingDim])

		out[i] = models.Face{
			FaceID:    c.faceID,
			Detection: c.detection,
			Score:     c.score,
			Blur:      blurScore,
			Embedding: embedding,
		}
	}
	return out, nil
}

func classifyDirection(lm [5]geometry.Point) blur.Direction {
	return blur.ClassifyDirection(lm)
}

// grayscaleCrop converts a channel-last, (channel - 127.5)/127.5 normalized
// 112x112x3 crop back to unnormalized grayscale for the blur metric, which
// operates on raw luminance.
func grayscaleCrop(crop []float32) []float64 {
	const size = 112
	rgb := make([]float64, size*size*3)
	for i, v := range crop {
		rgb[i] = float64(v)*127.5 + 127.5
	}
	return blur.Grayscale(rgb, size, size)
}
