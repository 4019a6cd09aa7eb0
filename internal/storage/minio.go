package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/faceindex/internal/config"
	"github.com/your-org/faceindex/internal/models"
)

type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// PutObject uploads data to MinIO under the given key.
func (s *MinIOStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// GetObject retrieves data from MinIO by key.
func (s *MinIOStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// DeleteObject removes an object from MinIO.
func (s *MinIOStore) DeleteObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// ListObjects returns all object keys under the given prefix, in the order MinIO returns them.
func (s *MinIOStore) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// DeleteObjects removes multiple objects from MinIO in a single batch request.
func (s *MinIOStore) DeleteObjects(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)
	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("delete object %s: %w", result.ObjectName, result.Err)
		}
	}
	return nil
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// sourceKey and remoteIndexKey are the object layout standing in for the
// remote upload/download surface named in §1 as an external collaborator:
// the original bytes a file was indexed from, and the RemoteFaceIndex
// envelope produced from it. Objects are written as given, unencrypted.
func sourceKey(fileID int64) string {
	return fmt.Sprintf("sources/%d", fileID)
}

func remoteIndexKey(fileID int64) string {
	return fmt.Sprintf("indices/%d.json", fileID)
}

// PutSourceImage stores the original image bytes a FaceIndex was computed
// from, so a pipeline version bump can trigger reindexing without the
// caller needing to keep its own copy.
func (s *MinIOStore) PutSourceImage(ctx context.Context, fileID int64, data []byte, contentType string) error {
	return s.PutObject(ctx, sourceKey(fileID), data, contentType)
}

// GetSourceImage retrieves the original image bytes for fileID.
func (s *MinIOStore) GetSourceImage(ctx context.Context, fileID int64) ([]byte, error) {
	return s.GetObject(ctx, sourceKey(fileID))
}

// PutRemoteFaceIndex uploads the RemoteFaceIndex envelope (§6.3) as JSON.
func (s *MinIOStore) PutRemoteFaceIndex(ctx context.Context, fileID int64, idx models.RemoteFaceIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal remote face index: %w", err)
	}
	return s.PutObject(ctx, remoteIndexKey(fileID), data, "application/json")
}

// GetRemoteFaceIndex downloads and decodes a RemoteFaceIndex envelope. The
// caller is responsible for comparing idx.Version against the locally
// supported pipeline version and discarding older-version indices (§6.3).
func (s *MinIOStore) GetRemoteFaceIndex(ctx context.Context, fileID int64) (*models.RemoteFaceIndex, error) {
	data, err := s.GetObject(ctx, remoteIndexKey(fileID))
	if err != nil {
		return nil, err
	}
	var idx models.RemoteFaceIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal remote face index: %w", err)
	}
	return &idx, nil
}
