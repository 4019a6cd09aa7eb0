package inference

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXDetector runs the fixed-shape [1,25200,16] detector model described
// in §4.2 via ONNX Runtime. Unlike a stride-based RetinaFace head, this
// model already concatenates every anchor row into one flat output tensor,
// so there is a single input/output tensor pair to manage.
type ONNXDetector struct {
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	outTensor   *ort.Tensor[float32]
	inputName   string
	outputName  string
}

// NewONNXDetector loads the detector model. opts may be nil for ORT
// defaults or a pre-configured *ort.SessionOptions.
func NewONNXDetector(modelPath, inputName, outputName string, opts *ort.SessionOptions) (*ONNXDetector, error) {
	inputShape := ort.NewShape(1, 3, int64(ModelCanvasSize), int64(ModelCanvasSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create detector input tensor: %w", err)
	}

	outShape := ort.NewShape(1, int64(DetectorRows), int64(DetectorCols))
	outTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create detector output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &ONNXDetector{
		session:     session,
		inputTensor: inputTensor,
		outTensor:   outTensor,
		inputName:   inputName,
		outputName:  outputName,
	}, nil
}

// ModelCanvasSize is the detector's square input resolution (§4.1).
const ModelCanvasSize = 640

// DetectFaces letterboxes pixelRGBA to the 640x640 model canvas, runs the
// session, and returns the flat [DetectorRows, DetectorCols] tensor
// untouched — decoding and coordinate remap happen in package detect and
// package geometry, not here.
func (d *ONNXDetector) DetectFaces(ctx context.Context, pixelRGBA []byte, height, width int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chw, err := letterboxToCHW(pixelRGBA, height, width)
	if err != nil {
		return nil, fmt.Errorf("preprocess detector input: %w", err)
	}

	copy(d.inputTensor.GetData(), chw)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detector session: %w", err)
	}

	out := make([]float32, DetectorRows*DetectorCols)
	copy(out, d.outTensor.GetData())
	return out, nil
}

func (d *ONNXDetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outTensor != nil {
		d.outTensor.Destroy()
	}
}

// letterboxToCHW resizes pixelRGBA onto a mid-grey 640x640 canvas, keeping
// aspect ratio, and returns CHW float32 data normalized to [-1, 1].
func letterboxToCHW(pixelRGBA []byte, height, width int) ([]float32, error) {
	if len(pixelRGBA) != height*width*4 {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%d RGBA", len(pixelRGBA), width, height)
	}

	scale := float64(ModelCanvasSize) / float64(width)
	if hs := float64(ModelCanvasSize) / float64(height); hs < scale {
		scale = hs
	}
	scaledW := int(float64(width)*scale + 0.5)
	scaledH := int(float64(height)*scale + 0.5)
	if scaledW > ModelCanvasSize {
		scaledW = ModelCanvasSize
	}
	if scaledH > ModelCanvasSize {
		scaledH = ModelCanvasSize
	}
	offX := (ModelCanvasSize - scaledW) / 2
	offY := (ModelCanvasSize - scaledH) / 2

	const planeSize = ModelCanvasSize * ModelCanvasSize
	chw := make([]float32, 3*planeSize)
	for i := range chw {
		chw[i] = (0.5 - 0.5) / 0.5 // mid-grey letterbox padding, normalized like the pixels below
	}

	for y := 0; y < scaledH; y++ {
		srcY := y * height / scaledH
		if srcY >= height {
			srcY = height - 1
		}
		for x := 0; x < scaledW; x++ {
			srcX := x * width / scaledW
			if srcX >= width {
				srcX = width - 1
			}
			srcOff := (srcY*width + srcX) * 4
			r := float32(pixelRGBA[srcOff]) / 255
			g := float32(pixelRGBA[srcOff+1]) / 255
			b := float32(pixelRGBA[srcOff+2]) / 255

			dstY := offY + y
			dstX := offX + x
			dstIdx := dstY*ModelCanvasSize + dstX
			chw[dstIdx] = (r - 0.5) / 0.5
			chw[planeSize+dstIdx] = (g - 0.5) / 0.5
			chw[2*planeSize+dstIdx] = (b - 0.5) / 0.5
		}
	}

	return chw, nil
}

// ONNXEmbedder runs the 112x112 embedding model over batches of aligned
// face crops one at a time, since the model graph has no batch dimension.
type ONNXEmbedder struct {
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	outTensor   *ort.Tensor[float32]
}

// NewONNXEmbedder loads the embedding model.
func NewONNXEmbedder(modelPath, inputName, outputName string, opts *ort.SessionOptions) (*ONNXEmbedder, error) {
	inputShape := ort.NewShape(1, 3, 112, 112)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create embedder input tensor: %w", err)
	}

	outShape := ort.NewShape(1, int64(EmbeddingDim))
	outTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create embedder output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outTensor.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}

	return &ONNXEmbedder{session: session, inputTensor: inputTensor, outTensor: outTensor}, nil
}

// ComputeFaceEmbeddings runs the embedding model once per crop in
// alignedFaces (channel-last [n,112,112,3], as produced by package warp)
// and returns a flat [n, EmbeddingDim] tensor.
func (e *ONNXEmbedder) ComputeFaceEmbeddings(ctx context.Context, alignedFaces []float32, n int) ([]float32, error) {
	const cropPixels = 112 * 112 * 3
	if len(alignedFaces) != n*cropPixels {
		return nil, fmt.Errorf("aligned faces length %d does not match n=%d crops", len(alignedFaces), n)
	}

	out := make([]float32, n*EmbeddingDim)
	chw := make([]float32, cropPixels)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		crop := alignedFaces[i*cropPixels : (i+1)*cropPixels]
		channelLastToCHW(crop, chw)
		copy(e.inputTensor.GetData(), chw)

		if err := e.session.Run(); err != nil {
			return nil, fmt.Errorf("run embedder session for crop %d: %w", i, err)
		}
		copy(out[i*EmbeddingDim:(i+1)*EmbeddingDim], e.outTensor.GetData())
	}

	return out, nil
}

func (e *ONNXEmbedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outTensor != nil {
		e.outTensor.Destroy()
	}
}

// channelLastToCHW converts a 112x112x3 channel-last crop into CHW layout.
func channelLastToCHW(src []float32, dst []float32) {
	const size = 112
	const plane = size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			srcOff := (y*size + x) * 3
			idx := y*size + x
			dst[idx] = src[srcOff]
			dst[plane+idx] = src[srcOff+1]
			dst[2*plane+idx] = src[srcOff+2]
		}
	}
}
