package inference

import (
	"fmt"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceindex/internal/config"
)

// Local holds the local ONNX Runtime detector and embedder sessions,
// together so callers can close both with one call.
type Local struct {
	Detector *ONNXDetector
	Embedder *ONNXEmbedder
}

// NewLocal loads the detector and embedder models from cfg.ModelsDir,
// applying the configured ORT thread caps to each session independently.
func NewLocal(cfg config.PipelineConfig) (*Local, error) {
	newSessionOptions := func() (*ort.SessionOptions, error) {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("create session options: %w", err)
		}
		if cfg.IntraOpThreads > 0 {
			if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
				opts.Destroy()
				return nil, fmt.Errorf("set intra_op_threads: %w", err)
			}
		}
		if cfg.InterOpThreads > 0 {
			if err := opts.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
				opts.Destroy()
				return nil, fmt.Errorf("set inter_op_threads: %w", err)
			}
		}
		return opts, nil
	}

	detPath := filepath.Join(cfg.ModelsDir, "detector.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "embedder.onnx")

	detOpts, err := newSessionOptions()
	if err != nil {
		return nil, err
	}
	det, err := NewONNXDetector(detPath, cfg.DetectorInput, cfg.DetectorOutput, detOpts)
	detOpts.Destroy()
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	embOpts, err := newSessionOptions()
	if err != nil {
		det.Close()
		return nil, err
	}
	emb, err := NewONNXEmbedder(embPath, cfg.EmbedderInput, cfg.EmbedderOutput, embOpts)
	embOpts.Destroy()
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Local{Detector: det, Embedder: emb}, nil
}

func (l *Local) Close() {
	l.Detector.Close()
	l.Embedder.Close()
}
