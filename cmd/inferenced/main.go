// Command inferenced runs the detector and embedder models behind the NATS
// request-reply RPC transport (internal/inference), so a worker can run
// with inference on a separate machine from the job queue consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/nats-io/nats.go"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceindex/internal/config"
	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting faceindex inference RPC server")

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

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detSub, err := inference.ServeDetect(ctx, nc, local.Detector)
	if err != nil {
		slog.Error("serve detect rpc", "error", err)
		os.Exit(1)
	}
	defer detSub.Unsubscribe()

	embSub, err := inference.ServeEmbed(ctx, nc, local.Embedder)
	if err != nil {
		slog.Error("serve embed rpc", "error", err)
		os.Exit(1)
	}
	defer embSub.Unsubscribe()

	slog.Info("inference RPC server ready", "cpu_cores", runtime.NumCPU())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down inference RPC server...")
	cancel()
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
