package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfile/service/internal/storage"
)

func newTestHandler(store storage.FileStore) *Handler {
	return &Handler{svc: &Service{repo: &fakeRecorder{}, store: store}}
}

func multipartBody(t *testing.T, field, filename, content, folder string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if folder != "" {
		require.NoError(t, w.WriteField("folder", folder))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandlerUpload(t *testing.T) {
	store := &fakeStore{uploadRes: &storage.UploadResult{
		FileKey: "2024/11/26/abc.txt", FileName: "a.txt", FileSize: 5, FileType: "txt",
		FileURL: "http://files/2024/11/26/abc.txt",
	}}
	h := newTestHandler(store)

	body, contentType := multipartBody(t, "file", "a.txt", "hello", "docs")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Success bool                 `json:"success"`
		Data    storage.UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "2024/11/26/abc.txt", env.Data.FileKey)
	assert.Equal(t, "docs", store.lastFolder)
}

func TestHandlerUploadMissingFilePart(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	body, contentType := multipartBody(t, "other", "a.txt", "hello", "")
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file must not be empty")
}

func TestHandlerDownloadSetsHeaders(t *testing.T) {
	h := newTestHandler(&downloadStore{})

	req := httptest.NewRequest(http.MethodGet, "/files/download?key=a/b/report.pdf", nil)
	rec := httptest.NewRecorder()

	h.Download(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "payload", rec.Body.String())
}

// downloadStore serves a fixed payload with metadata derived from the key.
type downloadStore struct{ fakeStore }

func (d *downloadStore) Download(ctx context.Context, key string) (*storage.DownloadResult, error) {
	return &storage.DownloadResult{
		Data: []byte("payload"),
		Metadata: storage.FileMetadata{
			FileName:    "report.pdf",
			ContentType: "application/pdf",
			FileSize:    7,
		},
	}, nil
}

func TestHandlerFileURL(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/files/url?key=a/b.txt", nil)
	rec := httptest.NewRecorder()

	h.FileURL(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://files/a/b.txt")
}

func TestWriteStorageErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{storage.ErrInvalidArgument, http.StatusBadRequest},
		{&storage.ConnectionError{Host: "h", Port: 22, User: "u", Err: errors.New("refused")}, http.StatusBadGateway},
		{&storage.OperationError{Op: "upload", Path: "p", Err: errors.New("boom")}, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeStorageError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}
