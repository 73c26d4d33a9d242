// Package cache provides the key-value store cmd/judge-worker uses to
// publish submission status snapshots for the status/streaming endpoints.
// Trimmed from internal/common/cache/interface.go's much larger Cache
// surface (hashes, sets, sorted sets, locks) to the handful of operations
// this engine actually needs: a status snapshot is a single JSON blob
// under a submission ID key.
package cache

import (
	"context"
	"time"
)

// Cache is the subset of Redis-shaped operations this engine uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by Get when the key doesn't exist, mirroring
// redis.Nil without leaking the driver type into callers.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }
