package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceindex/internal/api/handlers"
	"github.com/your-org/faceindex/internal/api/ws"
	"github.com/your-org/faceindex/internal/auth"
	"github.com/your-org/faceindex/internal/pipeline"
	"github.com/your-org/faceindex/internal/queue"
	"github.com/your-org/faceindex/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Pipeline *pipeline.Pipeline
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Indexing
	indexH := handlers.NewIndexHandler(cfg.Pipeline, cfg.DB, cfg.MinIO, cfg.Producer)
	v1.POST("/files/:fileId/index", indexH.Submit)
	v1.POST("/files/:fileId/index/sync", indexH.IndexNow)
	v1.GET("/files/:fileId/index", indexH.GetIndex)
	v1.POST("/search", indexH.Search)

	return r
}
