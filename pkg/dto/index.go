// Package dto holds the wire-format request/response types for the HTTP
// API, kept separate from the domain model in internal/models so the API
// surface can evolve independently of the pipeline's own records.
package dto

// IndexJobResponse is returned immediately after a file is submitted for
// indexing; the result itself arrives later over the websocket hub or via
// GetIndex. JobID identifies this particular submission independent
// of FileID, so a caller that resubmits the same file before the first job
// finishes can still tell the two jobs apart in logs and completions.
type IndexJobResponse struct {
	JobID  string `json:"job_id"`
	FileID int64  `json:"file_id"`
	Status string `json:"status"` // queued, indexing, done, failed
}

// FaceResponse mirrors models.Face for the wire, keeping the API response
// shape independent of the internal struct layout.
type FaceResponse struct {
	FaceID    string      `json:"face_id"`
	Box       BoxResponse `json:"box"`
	Landmarks []PointPair `json:"landmarks"`
	Score     float64     `json:"score"`
	Blur      float64     `json:"blur"`
	Embedding []float32   `json:"embedding"`
}

type BoxResponse struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type PointPair struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceIndexResponse is the API's rendering of a LocalFaceIndex.
type FaceIndexResponse struct {
	FileID int64          `json:"file_id"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Faces  []FaceResponse `json:"faces"`
}

// WSIndexEvent is a websocket message announcing an index job's progress
// or completion for a file a client has subscribed to.
type WSIndexEvent struct {
	JobID  string `json:"job_id,omitempty"`
	Type   string `json:"type"` // queued, indexing, done, failed
	FileID int64  `json:"file_id"`
	Error  string `json:"error,omitempty"`
}

// SearchRequest looks up faces by embedding similarity.
type SearchRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
	Threshold float64   `json:"threshold"`
	Limit     int       `json:"limit"`
}

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	FaceID string  `json:"face_id"`
	FileID int64   `json:"file_id"`
	Score  float64 `json:"score"`
}
