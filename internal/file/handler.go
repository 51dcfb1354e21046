package file

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/smartfile/service/internal/middleware"
	"github.com/smartfile/service/internal/response"
	"github.com/smartfile/service/internal/storage"
)

// maxUploadMemory bounds the multipart parse buffer; larger files spill to
// temp files.
const maxUploadMemory = 32 << 20

// Handler holds HTTP handlers for file endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new file Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores a file in the configured backend under a generated date-partitioned key.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"file payload"
//	@Param			folder	formData	string	false	"optional key prefix"
//	@Success		200	{object}	response.Envelope{data=storage.UploadResult}
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/files/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file must not be empty")
		return
	}
	defer f.Close()

	uploader, _ := r.Context().Value(middleware.UserIDKey).(string)

	res, err := h.svc.Upload(r.Context(), f, header.Filename, header.Size, r.FormValue("folder"), uploader)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	response.OK(w, res)
}

// Download godoc
//
//	@Summary		Download a file
//	@Description	Streams the stored bytes for a key.
//	@Tags			files
//	@Produce		application/octet-stream
//	@Security		BearerAuth
//	@Param			key	query	string	true	"file key"
//	@Success		200	{file}		file
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/files/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	res, err := h.svc.Download(r.Context(), key)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.Metadata.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Metadata.FileSize, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Metadata.FileName))
	_, _ = w.Write(res.Data)
}

// FileURL godoc
//
//	@Summary		Resolve a file URL
//	@Description	Returns the public URL for a key without touching the backend.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key	query	string	true	"file key"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Router			/files/url [get]
func (h *Handler) FileURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.FileURL(r.URL.Query().Get("key"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	response.OK(w, map[string]string{"url": url})
}

// Delete godoc
//
//	@Summary		Delete a file
//	@Description	Removes the stored object and marks its record deleted.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key	query	string	true	"file key"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/files [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.URL.Query().Get("key")); err != nil {
		writeStorageError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": "deleted"})
}

// List godoc
//
//	@Summary		List upload records
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query	int	false	"page size (max 200)"
//	@Param			offset	query	int	false	"page offset"
//	@Success		200	{object}	response.Envelope{data=[]Record}
//	@Failure		500	{object}	response.Envelope
//	@Router			/files [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	if records == nil {
		records = []Record{}
	}
	response.OK(w, records)
}

// writeStorageError maps the storage error taxonomy onto HTTP responses.
// Messages stay short and human-readable; diagnostic detail goes to the logs
// at the operation site.
func writeStorageError(w http.ResponseWriter, err error) {
	var connErr *storage.ConnectionError
	var opErr *storage.OperationError
	switch {
	case errors.Is(err, storage.ErrInvalidArgument):
		response.BadRequest(w, err.Error())
	case errors.As(err, &connErr):
		response.Error(w, http.StatusBadGateway, "storage connection failed")
	case errors.As(err, &opErr):
		response.Error(w, http.StatusInternalServerError, opErr.Error())
	default:
		response.InternalError(w)
	}
}
