package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore implements FileStore on the local filesystem, mainly for
// development and single-node deployments. Keys use forward slashes and map
// onto a directory tree below root.
type LocalStore struct {
	root      string
	urlPrefix string
	now       func() time.Time
}

// NewLocalStore ensures the root directory exists and returns a LocalStore.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &LocalStore{
		root:      root,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

func (s *LocalStore) fullPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(normalizePath(key)))
}

// Upload writes src below the storage root under a generated key.
func (s *LocalStore) Upload(ctx context.Context, src io.Reader, name string, size int64, folder string) (*UploadResult, error) {
	if src == nil || size <= 0 {
		return nil, invalidArg("file must not be empty")
	}

	key := buildUploadKey(folder, name, s.now())
	full := s.fullPath(key)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, &OperationError{Op: "upload", Path: key, Err: err}
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, &OperationError{Op: "upload", Path: key, Err: err}
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return nil, &OperationError{Op: "upload", Path: key, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &OperationError{Op: "upload", Path: key, Err: err}
	}

	log.Printf("local upload ok: %s -> %s", name, full)
	return &UploadResult{
		FileKey:  key,
		FileName: name,
		FileSize: size,
		FileType: fileExtension(name),
		FileURL:  s.urlPrefix + "/" + key,
	}, nil
}

// Download reads the file behind key from disk.
func (s *LocalStore) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, invalidArg("file key must not be empty")
	}

	data, err := os.ReadFile(s.fullPath(key))
	if err != nil {
		return nil, &OperationError{Op: "download", Path: key, Err: err}
	}

	return &DownloadResult{
		Data: data,
		Metadata: FileMetadata{
			FileName:    fileNameFromKey(key),
			ContentType: contentTypeForExtension(fileExtension(key)),
			FileSize:    int64(len(data)),
		},
	}, nil
}

// Delete removes the file behind key. Missing files are reported, not
// swallowed.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArg("file key must not be empty")
	}
	if err := os.Remove(s.fullPath(key)); err != nil {
		return &OperationError{Op: "delete", Path: key, Err: err}
	}
	return nil
}

// FileURL returns the public URL for the given key.
func (s *LocalStore) FileURL(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", invalidArg("file key must not be empty")
	}
	return s.urlPrefix + "/" + key, nil
}
