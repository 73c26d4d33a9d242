package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage adapts the MinIO client to ObjectStorage. Grounded on
// internal/common/storage/minio.go's client construction and error
// unwrapping; trimmed to the read path.
type MinIOStorage struct {
	client *minio.Client
}

// NewMinIO dials endpoint with static credentials. useSSL mirrors the
// teacher's config flag rather than inferring it from the endpoint scheme.
func NewMinIO(endpoint, accessKey, secretKey string, useSSL bool) (*MinIOStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinIOStorage{client: client}, nil
}

func (m *MinIOStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject only errors on request construction; a missing key surfaces
	// on the first Stat/Read, so confirm existence eagerly rather than
	// handing callers a reader that fails opaquely later.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (m *MinIOStorage) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Size: info.Size, ETag: info.ETag}, nil
}
