// Command indexer walks a directory of image files and indexes each one
// directly against local ONNX models, storing the source image and its
// FaceIndex the same way the API/worker pair would. Useful for local
// testing and bulk backfill without standing up the full service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceindex/internal/config"
	"github.com/your-org/faceindex/internal/imageio"
	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/models"
	"github.com/your-org/faceindex/internal/observability"
	"github.com/your-org/faceindex/internal/pipeline"
	"github.com/your-org/faceindex/internal/storage"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	dir := flag.String("dir", "", "directory of image files to index")
	startID := flag.Int64("start-id", 1, "file id to assign to the first indexed image")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: indexer -dir <path> [-config configs/config.yaml] [-start-id 1]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting faceindex batch indexer", "dir", *dir)

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
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

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

	pl := pipeline.New(local.Detector, local.Embedder)

	var paths []string
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		slog.Error("walk directory", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	fileID := *startID
	indexed, failed := 0, 0

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("read file", "path", path, "error", err)
			failed++
			continue
		}

		pixels, width, height, err := imageio.Decode(data)
		if err != nil {
			slog.Warn("decode image", "path", path, "error", err)
			failed++
			continue
		}

		idx, err := pl.IndexFaces(ctx, fileID, pipeline.Image{PixelRGBA: pixels, Width: width, Height: height})
		if err != nil {
			slog.Warn("index image", "path", path, "error", err)
			failed++
			fileID++
			continue
		}

		if err := minioStore.PutSourceImage(ctx, fileID, data, contentTypeFor(path)); err != nil {
			slog.Warn("store source image", "path", path, "error", err)
		}

		local := models.LocalFaceIndex{FaceIndex: idx, FileID: fileID}
		if err := db.SaveFaceIndex(ctx, local); err != nil {
			slog.Warn("save face index", "path", path, "error", err)
			failed++
			fileID++
			continue
		}

		observability.FilesIndexed.Inc()
		observability.FacesIndexed.Add(float64(len(idx.Faces)))
		slog.Info("indexed", "path", path, "file_id", fileID, "faces", len(idx.Faces))
		indexed++
		fileID++
	}

	slog.Info("batch indexing complete", "indexed", indexed, "failed", failed, "total", len(paths))
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
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
