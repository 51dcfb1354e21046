// Package file manages uploaded file records and the HTTP file API.
package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is the persisted trace of one uploaded file.
type Record struct {
	ID        string     `json:"id"`
	FileKey   string     `json:"fileKey"`
	FileName  string     `json:"fileName"`
	FileSize  int64      `json:"fileSize"`
	FileType  string     `json:"fileType"`
	Uploader  string     `json:"uploader"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ErrNotFound is returned when a file record does not exist.
var ErrNotFound = errors.New("file record not found")

// Repository handles all file-record database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new upload record and returns it.
func (r *Repository) Create(ctx context.Context, key, name string, size int64, fileType, uploader string) (*Record, error) {
	rec := &Record{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO files (file_key, file_name, file_size, file_type, uploader)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, file_key, file_name, file_size, file_type, uploader, created_at, deleted_at`,
		key, name, size, fileType, uploader,
	).Scan(&rec.ID, &rec.FileKey, &rec.FileName, &rec.FileSize, &rec.FileType, &rec.Uploader, &rec.CreatedAt, &rec.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}
	return rec, nil
}

// GetByKey fetches a record by its storage key.
func (r *Repository) GetByKey(ctx context.Context, key string) (*Record, error) {
	rec := &Record{}
	err := r.db.QueryRow(ctx,
		`SELECT id, file_key, file_name, file_size, file_type, uploader, created_at, deleted_at
		 FROM files WHERE file_key = $1`,
		key,
	).Scan(&rec.ID, &rec.FileKey, &rec.FileName, &rec.FileSize, &rec.FileType, &rec.Uploader, &rec.CreatedAt, &rec.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file record by key: %w", err)
	}
	return rec, nil
}

// List returns non-deleted records, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, file_key, file_name, file_size, file_type, uploader, created_at, deleted_at
		 FROM files WHERE deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.FileKey, &rec.FileName, &rec.FileSize, &rec.FileType, &rec.Uploader, &rec.CreatedAt, &rec.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkDeleted stamps the record for key as deleted.
func (r *Repository) MarkDeleted(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE files SET deleted_at = now() WHERE file_key = $1 AND deleted_at IS NULL`,
		key,
	)
	if err != nil {
		return fmt.Errorf("mark file record deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
