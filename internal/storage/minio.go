package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements FileStore on a MinIO (or any S3-compatible) backend.
// Switching to another S3 provider only needs new endpoint and credentials.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
	now        func() time.Time
}

// NewMinioStore creates a MinIO client, ensures the bucket exists with a
// public-read policy, and returns a ready-to-use MinioStore.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}, nil
}

// Upload streams src to the bucket under a generated date-partitioned key.
func (s *MinioStore) Upload(ctx context.Context, src io.Reader, name string, size int64, folder string) (*UploadResult, error) {
	if src == nil || size <= 0 {
		return nil, invalidArg("file must not be empty")
	}

	key := buildUploadKey(folder, name, s.now())
	ext := fileExtension(name)

	_, err := s.client.PutObject(ctx, s.bucket, key, src, size, minio.PutObjectOptions{
		ContentType: contentTypeForExtension(ext),
	})
	if err != nil {
		log.Printf("s3 put %s failed: %v", key, err)
		return nil, &OperationError{Op: "upload", Path: key, Err: err}
	}

	return &UploadResult{
		FileKey:  key,
		FileName: name,
		FileSize: size,
		FileType: ext,
		FileURL:  s.publicBase + "/" + key,
	}, nil
}

// Download reads the object behind key fully into memory.
func (s *MinioStore) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, invalidArg("file key must not be empty")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &OperationError{Op: "download", Path: key, Err: err}
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		log.Printf("s3 get %s failed: %v", key, err)
		return nil, &OperationError{Op: "download", Path: key, Err: err}
	}

	return &DownloadResult{
		Data: buf.Bytes(),
		Metadata: FileMetadata{
			FileName:    fileNameFromKey(key),
			ContentType: contentTypeForExtension(fileExtension(key)),
			FileSize:    int64(buf.Len()),
		},
	}, nil
}

// Delete removes the object behind key from the bucket.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArg("file key must not be empty")
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("s3 remove %s failed: %v", key, err)
		return &OperationError{Op: "delete", Path: key, Err: err}
	}
	return nil
}

// FileURL returns the browser-accessible URL for the given key.
func (s *MinioStore) FileURL(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", invalidArg("file key must not be empty")
	}
	return s.publicBase + "/" + key, nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET
// on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
