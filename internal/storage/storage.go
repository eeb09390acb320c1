// Package storage provides the object storage targets that table exports are
// uploaded to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage is the destination of export files. Implementations exist for
// the local filesystem and S3.
type ObjectStorage interface {
	// Upload copies a local file to objectPath and returns its ETag.
	Upload(ctx context.Context, localPath, objectPath string) (string, error)

	// Download copies an object to a local file.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Options selects and configures a storage backend.
type Options struct {
	// Type is local or s3
	Type string

	// Path is the base directory of local storage
	Path string

	// S3 settings, used when Type is s3
	Bucket string
	S3     S3Config
}

// New opens the backend named by opts.Type.
func New(ctx context.Context, opts Options) (ObjectStorage, error) {
	switch opts.Type {
	case "", "local":
		return NewLocalStorage(opts.Path)
	case "s3":
		return NewS3Storage(ctx, opts.Bucket, opts.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", opts.Type)
	}
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 8MB).
	PartSize int64
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize: 8 * 1024 * 1024,
	}
}
