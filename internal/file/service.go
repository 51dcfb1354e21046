package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/smartfile/service/internal/storage"
)

// recorder is the persistence surface Service needs; satisfied by Repository.
type recorder interface {
	Create(ctx context.Context, key, name string, size int64, fileType, uploader string) (*Record, error)
	GetByKey(ctx context.Context, key string) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	MarkDeleted(ctx context.Context, key string) error
}

// Service contains business logic for file management: it drives the storage
// backend and keeps an upload record per stored file.
type Service struct {
	repo  recorder
	store storage.FileStore
}

// NewService creates a new file Service.
func NewService(repo *Repository, store storage.FileStore) *Service {
	return &Service{repo: repo, store: store}
}

// Upload stores the payload in the configured backend and records the upload.
func (s *Service) Upload(ctx context.Context, src io.Reader, name string, size int64, folder, uploader string) (*storage.UploadResult, error) {
	res, err := s.store.Upload(ctx, src, name, size, folder)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Create(ctx, res.FileKey, res.FileName, res.FileSize, res.FileType, uploader); err != nil {
		// The file is already stored; losing the record must not fail the
		// upload, but it has to show up in the logs.
		log.Printf("file record for %s not persisted: %v", res.FileKey, err)
	}

	return res, nil
}

// Download fetches the payload behind key from the storage backend.
func (s *Service) Download(ctx context.Context, key string) (*storage.DownloadResult, error) {
	return s.store.Download(ctx, key)
}

// Delete removes the stored object and stamps its record as deleted.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.repo.MarkDeleted(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
}

// FileURL resolves a key into its public URL.
func (s *Service) FileURL(key string) (string, error) {
	return s.store.FileURL(key)
}

// List returns upload records for the admin listing, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
