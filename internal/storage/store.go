// Package storage provides the blob store behind dataset snapshots and
// model artifacts. Two backends exist: a local filesystem store and a
// Postgres-backed store.
package storage

import (
	"context"
	"time"
)

// FileInfo describes a stored object.
type FileInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the blob store contract. Names are slash-separated paths
// relative to the store root.
type Store interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, prefix string) ([]FileInfo, error)
	Delete(ctx context.Context, name string) error
}
