package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage/local"
	"github.com/woeat/pipeline/pkg/storage/minio"
	"github.com/woeat/pipeline/pkg/storage/s3"
	"github.com/woeat/pipeline/pkg/storage/types"
)

// StorageType selects the raw store backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Object describes one raw record in the store. LastModified doubles as the
// ingestion provenance timestamp for per-record sources.
type Object = types.Object

// Storage is the raw-store (bronze zone) interface
type Storage interface {
	// Store writes a raw record under the given key
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get reads a raw record
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List enumerates records under a key prefix
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete removes a raw record
	Delete(ctx context.Context, key string) error
}

// NewStorage creates a raw store instance for the configured backend
func NewStorage(storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeLocal:
		return local.GetClient(log)
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
