package files

import (
	"path/filepath"
	"strings"
)

// Fallback table for when the backend returns no usable metadata. Keep the
// entries the assistant actually produces (analysis outputs, charts,
// exports).
var mimeByExtension = map[string]string{
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".json": "application/json",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".py":   "text/x-python",
	".go":   "text/x-go",
}

const defaultContentType = "application/octet-stream"

// ContentTypeFor derives a content type from a filename extension.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := mimeByExtension[ext]; ok {
		return ct
	}
	return defaultContentType
}
