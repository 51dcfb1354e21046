// Package storage defines the pluggable file storage contract and its backends.
// Swap implementations by changing STORAGE_BACKEND — the dispatch in New picks
// between a remote SFTP server, an S3-compatible object store, and local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smartfile/service/internal/config"
)

// FileStore is the capability contract every storage backend implements.
// Operations return typed errors from this package, never panic across
// the boundary.
type FileStore interface {
	// Upload stores src under a generated, date-partitioned key. folder is an
	// optional prefix placed in front of the date partition. size must be the
	// exact byte count of src.
	Upload(ctx context.Context, src io.Reader, name string, size int64, folder string) (*UploadResult, error)
	// Download reads the entire object identified by key into memory.
	Download(ctx context.Context, key string) (*DownloadResult, error)
	// Delete removes the object identified by key. Deleting a missing object
	// is an error, not a no-op.
	Delete(ctx context.Context, key string) error
	// FileURL resolves a key into its public URL. Pure; no remote calls.
	FileURL(key string) (string, error)
}

// UploadResult describes one successfully stored file.
type UploadResult struct {
	FileKey  string `json:"fileKey"`
	FileName string `json:"fileName"` // original display name
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"` // extension of the original name, "" if none
	FileURL  string `json:"fileUrl"`
}

// FileMetadata describes a downloaded payload.
type FileMetadata struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

// DownloadResult carries a downloaded payload and its metadata. Data is fully
// buffered in memory; callers are expected to gate object sizes upstream.
type DownloadResult struct {
	Data     []byte
	Metadata FileMetadata
}

// ErrInvalidArgument marks failures detected before any remote call
// (empty payload, blank key). Wrap with context via invalidArg.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArg(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// ConnectionError reports a failure to establish the transport session.
type ConnectionError struct {
	Host string
	Port int
	User string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s:%d as %q: %v", e.Host, e.Port, e.User, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationError reports a failed storage primitive after a session was
// established. Op is the public operation ("upload", "download", "delete").
type OperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// New selects and constructs the configured storage backend.
func New(cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case "sftp":
		return NewSFTPStore(cfg), nil
	case "s3":
		return NewMinioStore(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
		)
	case "local":
		return NewLocalStore(cfg.LocalRoot, cfg.LocalURLPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
