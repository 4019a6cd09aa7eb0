package pipeline

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/inference/mockinference"
)

func solidImage(w, h int, gray byte) Image {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4] = gray
		pix[i*4+1] = gray
		pix[i*4+2] = gray
		pix[i*4+3] = 255
	}
	return Image{PixelRGBA: pix, Width: w, Height: h}
}

func zeroTensor() []float32 {
	return make([]float32, inference.DetectorRows*inference.DetectorCols)
}

// TestIndexFacesNoDetections covers Scenario S1: a solid image with every
// detector row below threshold yields zero faces but correct dimensions.
func TestIndexFacesNoDetections(t *testing.T) {
	det := &mockinference.Detector{Tensor: zeroTensor()}
	emb := &mockinference.Embedder{EmbeddingValue: 1}
	p := New(det, emb)

	img := solidImage(100, 100, 128)
	index, err := p.IndexFaces(context.Background(), 1, img)
	require.NoError(t, err)
	require.Equal(t, 100, index.Width)
	require.Equal(t, 100, index.Height)
	require.Empty(t, index.Faces)
}

var faceIDPattern = regexp.MustCompile(`^\d+(_\d{5}){4}$`)

// TestIndexFacesSingleDetection exercises the full pipeline end to end: one
// accepted detection with a non-degenerate landmark layout on a 640x640
// image (so the letterbox is the identity remap), producing exactly one
// Face with coordinates in [0,1] and a well-formed faceID.
func TestIndexFacesSingleDetection(t *testing.T) {
	tensor := zeroTensor()
	row := mockinference.NewRow(0.9, 300, 300, 200, 200, [5][2]float32{
		{176.5892, 203.3926},
		{247.0636, 203.0028},
		{212.0504, 243.4732},
		{183.0986, 284.731},
		{241.4598, 284.4082},
	})
	copy(tensor[0:inference.DetectorCols], row)

	det := &mockinference.Detector{Tensor: tensor}
	emb := &mockinference.Embedder{EmbeddingValue: 1}
	p := New(det, emb)

	img := solidImage(640, 640, 128)
	index, err := p.IndexFaces(context.Background(), 42, img)
	require.NoError(t, err)
	require.Len(t, index.Faces, 1)

	face := index.Faces[0]
	require.True(t, faceIDPattern.MatchString(face.FaceID), "FaceID = %q does not match pattern", face.FaceID)
	require.Equal(t, 0.9, face.Score)
	require.Len(t, face.Embedding, inference.EmbeddingDim)

	b := face.Detection.Box
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
	for _, lm := range face.Detection.Landmarks {
		require.GreaterOrEqual(t, lm.X, 0.0)
		require.LessOrEqual(t, lm.X, 1.0)
		require.GreaterOrEqual(t, lm.Y, 0.0)
		require.LessOrEqual(t, lm.Y, 1.0)
	}

	require.Zero(t, face.Blur, "blur should be 0 for a constant-gray source image")
}

// TestIndexFacesScoreFiltering asserts no returned face has score < 0.7,
// even when the mock detector emits borderline rows.
func TestIndexFacesScoreFiltering(t *testing.T) {
	tensor := zeroTensor()
	below := mockinference.NewRow(0.69, 300, 300, 200, 200, [5][2]float32{
		{176.5892, 203.3926}, {247.0636, 203.0028}, {212.0504, 243.4732}, {183.0986, 284.731}, {241.4598, 284.4082},
	})
	copy(tensor[0:inference.DetectorCols], below)

	det := &mockinference.Detector{Tensor: tensor}
	emb := &mockinference.Embedder{EmbeddingValue: 1}
	p := New(det, emb)

	index, err := p.IndexFaces(context.Background(), 1, solidImage(640, 640, 128))
	require.NoError(t, err)
	for _, f := range index.Faces {
		require.GreaterOrEqual(t, f.Score, 0.7, "face with score below threshold present in result")
	}
}

func TestIndexFacesPropagatesInferenceError(t *testing.T) {
	det := &mockinference.Detector{Tensor: nil}
	emb := &mockinference.Embedder{EmbeddingValue: 1}
	p := New(det, emb)

	_, err := p.IndexFaces(context.Background(), 1, solidImage(10, 10, 0))
	require.Error(t, err, "want non-nil error for malformed mock tensor")
}
