package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackFileName is served when a key carries no usable trailing segment.
const fallbackFileName = "download"

// normalizePath collapses every run of consecutive slashes to a single one.
// Applied to every path the backends construct; keys never carry "//".
func normalizePath(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// fileExtension returns the substring after the last dot of name, or "" when
// name has no extension. A leading dot alone (".hidden") does not count.
func fileExtension(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

// fileNameFromKey extracts the display name from a key's trailing segment.
func fileNameFromKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return fallbackFileName
	}
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return key
	}
	if name := key[i+1:]; name != "" {
		return name
	}
	return fallbackFileName
}

// newFileName generates a collision-resistant base name: a random UUID
// rendered as 32 hex characters, plus the extension when there is one.
func newFileName(ext string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// buildUploadKey constructs the relative storage key for a new upload:
// an optional folder prefix, a YYYY/MM/DD date partition, and a generated
// file name carrying the original name's extension.
func buildUploadKey(folder, originalName string, now time.Time) string {
	dateFolder := now.Format("2006/01/02")
	sub := dateFolder
	if strings.TrimSpace(folder) != "" {
		sub = folder + "/" + dateFolder
	}
	return normalizePath(sub + "/" + newFileName(fileExtension(originalName)))
}

// extensionContentTypes maps lowercase file extensions to MIME types.
// Fixed table rather than mime.TypeByExtension: lookups must be identical
// across hosts and free of charset parameters.
var extensionContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"xml":  "application/xml",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"rar":  "application/vnd.rar",
	"7z":   "application/x-7z-compressed",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
}

// contentTypeForExtension resolves an extension to a MIME type, defaulting to
// application/octet-stream for unknown or empty extensions.
func contentTypeForExtension(ext string) string {
	if ct, ok := extensionContentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
