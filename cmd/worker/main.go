package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceindex/internal/config"
	"github.com/your-org/faceindex/internal/imageio"
	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/models"
	"github.com/your-org/faceindex/internal/observability"
	"github.com/your-org/faceindex/internal/pipeline"
	"github.com/your-org/faceindex/internal/queue"
	"github.com/your-org/faceindex/internal/storage"
	"github.com/your-org/faceindex/pkg/dto"
)

const workerCount = 4

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting faceindex worker",
		"workers", workerCount,
		"cpu_cores", runtime.NumCPU(),
		"remote_inference", cfg.Pipeline.RemoteInference,
	)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	var pl *pipeline.Pipeline
	if cfg.Pipeline.RemoteInference {
		slog.Info("using remote inference over NATS", "nats_url", cfg.NATS.URL)
		det := inference.NewRemoteDetector(consumer.Conn())
		emb := inference.NewRemoteEmbedder(consumer.Conn())
		pl = pipeline.New(det, emb)
	} else {
		ort.SetSharedLibraryPath(getONNXLibPath())
		if err := ort.InitializeEnvironment(); err != nil {
			slog.Error("init onnx runtime", "error", err)
			os.Exit(1)
		}
		defer ort.DestroyEnvironment()

		local, err := inference.NewLocal(cfg.Pipeline)
		if err != nil {
			slog.Error("init local inference", "error", err)
			os.Exit(1)
		}
		defer local.Close()
		pl = pipeline.New(local.Detector, local.Embedder)
	}

	slog.Info("pipeline ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeJobs(ctx, "index-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var job dto.IndexJobResponse
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			slog.Error("unmarshal index job", "error", err)
			return nil // don't retry on malformed job payloads
		}

		data, err := minioStore.GetSourceImage(ctx, job.FileID)
		if err != nil {
			return fmt.Errorf("fetch source image %d: %w", job.FileID, err)
		}

		pixels, width, height, err := imageio.Decode(data)
		if err != nil {
			return fmt.Errorf("decode source image %d: %w", job.FileID, err)
		}

		idx, err := pl.IndexFaces(ctx, job.FileID, pipeline.Image{PixelRGBA: pixels, Width: width, Height: height})
		if err != nil {
			observability.IndexingFailures.WithLabelValues("pipeline").Inc()
			_ = producer.PublishCompletion(ctx, job.FileID, dto.WSIndexEvent{JobID: job.JobID, Type: "failed", FileID: job.FileID, Error: err.Error()})
			return fmt.Errorf("index file %d (job %s): %w", job.FileID, job.JobID, err)
		}

		local := models.LocalFaceIndex{FaceIndex: idx, FileID: job.FileID}
		if err := db.SaveFaceIndex(ctx, local); err != nil {
			return fmt.Errorf("save index %d: %w", job.FileID, err)
		}

		remote := models.RemoteFaceIndex{FaceIndex: idx, Version: models.PipelineVersion, Client: cfg.Pipeline.ClientTag}
		if err := minioStore.PutRemoteFaceIndex(ctx, job.FileID, remote); err != nil {
			slog.Warn("upload remote index", "file_id", job.FileID, "error", err)
		}

		observability.FilesIndexed.Inc()
		observability.FacesIndexed.Add(float64(len(idx.Faces)))

		if err := producer.PublishCompletion(ctx, job.FileID, dto.WSIndexEvent{JobID: job.JobID, Type: "done", FileID: job.FileID}); err != nil {
			slog.Warn("publish completion", "job_id", job.JobID, "file_id", job.FileID, "error", err)
		}

		return nil
	}, workerCount)
	if err != nil {
		slog.Error("start index job consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
