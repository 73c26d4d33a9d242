// Package storage fetches problem bundle objects (test archives, asset
// blobs) out of object storage. Trimmed from internal/common/storage/
// interface.go's full read/write surface to GetObject/StatObject, since
// this engine only ever reads bundles that judge-authoring tooling
// already uploaded elsewhere.
package storage

import (
	"context"
	"io"
)

// ObjectInfo is the subset of object metadata callers need before
// deciding whether (and how much) to read.
type ObjectInfo struct {
	Size int64
	ETag string
}

// ObjectStorage is the subset of bucket operations this engine uses.
type ObjectStorage interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
}
