package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceindex/internal/config"
	"github.com/your-org/faceindex/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveFaceIndex persists a LocalFaceIndex: one row in face_indices for the
// image-level record, and one row per face in faces. A prior index for the
// same file is replaced transactionally (reindexing overwrites in place,
// §3 Invariant 4).
func (s *PostgresStore) SaveFaceIndex(ctx context.Context, idx models.LocalFaceIndex) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save face index: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM faces WHERE file_id = $1`, idx.FileID); err != nil {
		return fmt.Errorf("clear prior faces: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO face_indices (file_id, width, height, pipeline_version)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (file_id) DO UPDATE SET width = EXCLUDED.width, height = EXCLUDED.height, pipeline_version = EXCLUDED.pipeline_version`,
		idx.FileID, idx.Width, idx.Height, models.PipelineVersion)
	if err != nil {
		return fmt.Errorf("upsert face index: %w", err)
	}

	for _, f := range idx.Faces {
		detection, err := json.Marshal(f.Detection)
		if err != nil {
			return fmt.Errorf("marshal detection for %s: %w", f.FaceID, err)
		}
		vec := pgvector.NewVector(f.Embedding[:])

		_, err = tx.Exec(ctx,
			`INSERT INTO faces (face_id, file_id, detection, score, blur, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			f.FaceID, idx.FileID, detection, f.Score, f.Blur, vec)
		if err != nil {
			return fmt.Errorf("insert face %s: %w", f.FaceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save face index: %w", err)
	}
	return nil
}

// GetFaceIndex reassembles a LocalFaceIndex for a file, with faces sorted
// by face ID; the detector order they were stored in is not restored.
// Returns (nil, nil) if the file has never been indexed.
func (s *PostgresStore) GetFaceIndex(ctx context.Context, fileID int64) (*models.LocalFaceIndex, error) {
	idx := &models.LocalFaceIndex{FileID: fileID}
	err := s.pool.QueryRow(ctx,
		`SELECT width, height FROM face_indices WHERE file_id = $1`, fileID,
	).Scan(&idx.Width, &idx.Height)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get face index: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT face_id, detection, score, blur, embedding FROM faces WHERE file_id = $1 ORDER BY face_id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.Face
		var detection []byte
		var vec pgvector.Vector
		if err := rows.Scan(&f.FaceID, &detection, &f.Score, &f.Blur, &vec); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		if err := json.Unmarshal(detection, &f.Detection); err != nil {
			return nil, fmt.Errorf("unmarshal detection for %s: %w", f.FaceID, err)
		}
		copy(f.Embedding[:], vec.Slice())
		idx.Faces = append(idx.Faces, f)
	}
	return idx, nil
}

// DeleteFaceIndex removes a file's face index and all its faces.
func (s *PostgresStore) DeleteFaceIndex(ctx context.Context, fileID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM faces WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("delete faces: %w", err)
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM face_indices WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete face index: %w", err)
	}
	return nil
}

// FaceMatch is one nearest-neighbor result from SearchFaces.
type FaceMatch struct {
	FaceID string  `json:"face_id"`
	FileID int64   `json:"file_id"`
	Score  float64 `json:"score"`
}

// SearchFaces finds the closest faces to embedding by cosine distance,
// across all indexed files, subject to threshold and limit.
func (s *PostgresStore) SearchFaces(ctx context.Context, embedding []float32, threshold float64, limit int) ([]FaceMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT face_id, file_id, 1 - (embedding <=> $1) AS score
		 FROM faces
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}
	defer rows.Close()

	var matches []FaceMatch
	for rows.Next() {
		var m FaceMatch
		if err := rows.Scan(&m.FaceID, &m.FileID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan face match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}
