package storage

import (
	"context"
	"io"
	"time"
)

// Package storage abstracts where generated artifacts live between
// generation and reaping. The default backend is the local filesystem
// (artifacts under an output directory partitioned by kind); an
// S3-compatible backend is available for deployments without a stable disk.

// PutObjectOptions define optional parameters for storing artifacts.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is the artifact store shared by the fillers (write), the download
// path (read) and the reaper (delete). Keys are slash-separated relative
// paths like "pdf/cerfa-2031-abc123.pdf".
type Storage interface {
	// Put stores an artifact under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an artifact's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an artifact by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
