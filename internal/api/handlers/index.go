package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceindex/internal/imageio"
	"github.com/your-org/faceindex/internal/inference"
	"github.com/your-org/faceindex/internal/models"
	"github.com/your-org/faceindex/internal/observability"
	"github.com/your-org/faceindex/internal/pipeline"
	"github.com/your-org/faceindex/internal/queue"
	"github.com/your-org/faceindex/internal/storage"
	"github.com/your-org/faceindex/pkg/dto"
)

// IndexHandler exposes the face indexing pipeline over HTTP: synchronous
// indexing for small/interactive callers, async job submission for the
// worker to pick up, and nearest-neighbor search over stored embeddings.
type IndexHandler struct {
	pipeline *pipeline.Pipeline
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewIndexHandler(p *pipeline.Pipeline, db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *IndexHandler {
	return &IndexHandler{pipeline: p, db: db, minio: minio, producer: producer}
}

// Submit accepts a multipart image upload, stores it, and enqueues an
// indexing job for the worker. The caller polls GetIndex or subscribes to
// the websocket hub for the result.
func (h *IndexHandler) Submit(c *gin.Context) {
	fileIDStr := c.Param("fileId")
	fileID, err := strconv.ParseInt(fileIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload"})
		return
	}

	ctx := c.Request.Context()
	if err := h.minio.PutSourceImage(ctx, fileID, data, header.Header.Get("Content-Type")); err != nil {
		slog.Error("store source image", "file_id", fileID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image"})
		return
	}

	jobID := uuid.New().String()
	job := dto.IndexJobResponse{JobID: jobID, FileID: fileID, Status: "queued"}
	if err := h.producer.PublishJob(ctx, fileID, job); err != nil {
		slog.Error("publish index job", "job_id", jobID, "file_id", fileID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue job"})
		return
	}

	observability.QueueDepth.Inc()
	c.JSON(http.StatusAccepted, job)
}

// IndexNow decodes and indexes an uploaded image synchronously, bypassing
// the job queue. Useful for small interactive callers that want the
// result in the same request.
func (h *IndexHandler) IndexNow(c *gin.Context) {
	if h.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "synchronous indexing unavailable"})
		return
	}

	fileIDStr := c.Param("fileId")
	fileID, err := strconv.ParseInt(fileIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload"})
		return
	}

	pixels, width, height, err := imageio.Decode(buf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode image: %v", err)})
		return
	}

	ctx := c.Request.Context()
	idx, err := h.pipeline.IndexFaces(ctx, fileID, pipeline.Image{PixelRGBA: pixels, Width: width, Height: height})
	if err != nil {
		observability.IndexingFailures.WithLabelValues("pipeline").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	local := models.LocalFaceIndex{FaceIndex: idx, FileID: fileID}
	if err := h.db.SaveFaceIndex(ctx, local); err != nil {
		slog.Error("save face index", "file_id", fileID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save index"})
		return
	}

	observability.FilesIndexed.Inc()
	observability.FacesIndexed.Add(float64(len(idx.Faces)))
	c.JSON(http.StatusOK, toIndexResponse(local))
}

// GetIndex returns a previously computed FaceIndex.
func (h *IndexHandler) GetIndex(c *gin.Context) {
	fileID, err := strconv.ParseInt(c.Param("fileId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	idx, err := h.db.GetFaceIndex(c.Request.Context(), fileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup index"})
		return
	}
	if idx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not indexed"})
		return
	}

	c.JSON(http.StatusOK, toIndexResponse(*idx))
}

// Search looks up the nearest stored faces to a query embedding.
func (h *IndexHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Embedding) != inference.EmbeddingDim {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("embedding must have %d dimensions", inference.EmbeddingDim)})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	matches, err := h.db.SearchFaces(c.Request.Context(), req.Embedding, req.Threshold, req.Limit)
	if err != nil {
		slog.Error("search faces", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	results := make([]dto.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = dto.SearchResult{FaceID: m.FaceID, FileID: m.FileID, Score: m.Score}
	}
	c.JSON(http.StatusOK, results)
}

func toIndexResponse(idx models.LocalFaceIndex) dto.FaceIndexResponse {
	faces := make([]dto.FaceResponse, len(idx.Faces))
	for i, f := range idx.Faces {
		landmarks := make([]dto.PointPair, len(f.Detection.Landmarks))
		for j, p := range f.Detection.Landmarks {
			landmarks[j] = dto.PointPair{X: p.X, Y: p.Y}
		}
		faces[i] = dto.FaceResponse{
			FaceID: f.FaceID,
			Box: dto.BoxResponse{
				X:      f.Detection.Box.X,
				Y:      f.Detection.Box.Y,
				Width:  f.Detection.Box.Width,
				Height: f.Detection.Box.Height,
			},
			Landmarks: landmarks,
			Score:     f.Score,
			Blur:      f.Blur,
			Embedding: f.Embedding[:],
		}
	}
	return dto.FaceIndexResponse{
		FileID: idx.FileID,
		Width:  idx.Width,
		Height: idx.Height,
		Faces:  faces,
	}
}
