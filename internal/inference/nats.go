package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used for request-reply RPC to a remote inference worker, kept
// alongside the JetStream subject families in package queue.
const (
	DetectSubject = "inference.detect"
	EmbedSubject  = "inference.embed"
)

// RemoteTimeout bounds a single request-reply round trip.
const RemoteTimeout = 30 * time.Second

type detectRequest struct {
	PixelRGBA []byte `json:"pixel_rgba"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
}

type detectResponse struct {
	Tensor []float32 `json:"tensor"`
	Error  string    `json:"error,omitempty"`
}

type embedRequest struct {
	AlignedFaces []float32 `json:"aligned_faces"`
	N            int       `json:"n"`
}

type embedResponse struct {
	Tensor []float32 `json:"tensor"`
	Error  string    `json:"error,omitempty"`
}

// RemoteDetector delegates DetectFaces to a worker over NATS request-reply,
// for deployments where ONNX Runtime runs on a separate GPU-equipped host.
type RemoteDetector struct {
	nc *nats.Conn
}

// NewRemoteDetector wraps an established NATS connection (see package
// queue for stream setup conventions this connection is shared with).
func NewRemoteDetector(nc *nats.Conn) *RemoteDetector {
	return &RemoteDetector{nc: nc}
}

func (r *RemoteDetector) DetectFaces(ctx context.Context, pixelRGBA []byte, height, width int) ([]float32, error) {
	payload, err := json.Marshal(detectRequest{PixelRGBA: pixelRGBA, Height: height, Width: width})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	msg, err := r.nc.RequestWithContext(ctx, DetectSubject, payload)
	if err != nil {
		return nil, fmt.Errorf("detect rpc: %w", err)
	}

	var resp detectResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal detect response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("remote detector: %s", resp.Error)
	}
	return resp.Tensor, nil
}

// RemoteEmbedder delegates ComputeFaceEmbeddings to a worker over NATS
// request-reply.
type RemoteEmbedder struct {
	nc *nats.Conn
}

func NewRemoteEmbedder(nc *nats.Conn) *RemoteEmbedder {
	return &RemoteEmbedder{nc: nc}
}

func (r *RemoteEmbedder) ComputeFaceEmbeddings(ctx context.Context, alignedFaces []float32, n int) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{AlignedFaces: alignedFaces, N: n})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	msg, err := r.nc.RequestWithContext(ctx, EmbedSubject, payload)
	if err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal embed response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("remote embedder: %s", resp.Error)
	}
	return resp.Tensor, nil
}

// ServeDetect subscribes a local Detector to DetectSubject, answering RPC
// requests until ctx is cancelled. Used by cmd/inferenced, the process
// hosting the ONNX models.
func ServeDetect(ctx context.Context, nc *nats.Conn, det Detector) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(DetectSubject, func(msg *nats.Msg) {
		var req detectRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respondDetectError(msg, err)
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, RemoteTimeout)
		defer cancel()
		tensor, err := det.DetectFaces(reqCtx, req.PixelRGBA, req.Height, req.Width)
		if err != nil {
			respondDetectError(msg, err)
			return
		}
		payload, _ := json.Marshal(detectResponse{Tensor: tensor})
		_ = msg.Respond(payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", DetectSubject, err)
	}
	return sub, nil
}

// ServeEmbed subscribes a local Embedder to EmbedSubject.
func ServeEmbed(ctx context.Context, nc *nats.Conn, emb Embedder) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(EmbedSubject, func(msg *nats.Msg) {
		var req embedRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respondEmbedError(msg, err)
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, RemoteTimeout)
		defer cancel()
		tensor, err := emb.ComputeFaceEmbeddings(reqCtx, req.AlignedFaces, req.N)
		if err != nil {
			respondEmbedError(msg, err)
			return
		}
		payload, _ := json.Marshal(embedResponse{Tensor: tensor})
		_ = msg.Respond(payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", EmbedSubject, err)
	}
	return sub, nil
}

func respondDetectError(msg *nats.Msg, err error) {
	payload, _ := json.Marshal(detectResponse{Error: err.Error()})
	_ = msg.Respond(payload)
}

func respondEmbedError(msg *nats.Msg, err error) {
	payload, _ := json.Marshal(embedResponse{Error: err.Error()})
	_ = msg.Respond(payload)
}
