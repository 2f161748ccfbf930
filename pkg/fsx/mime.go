package fsx

import (
	"path"
	"strings"
)

// DefaultMimeType is the fallback MIME type for a path whose suffix does
// not match any entry in suffixMimeTypes.
const DefaultMimeType = "application/octet-stream"

// suffixMimeTypes maps common file-extension suffixes to MIME types,
// consulted by pkg/fsservice only when content-sniffing is inconclusive.
var suffixMimeTypes = map[string]string{
	".txt":  "text/plain",
	".json": "application/json",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".zip":  "application/zip",
	".mp4":  "video/mp4",
}

// MimeTypeForPath returns the suffix-derived MIME type for p, or
// DefaultMimeType if the suffix is unrecognized.
func MimeTypeForPath(p Path) string {
	ext := strings.ToLower(path.Ext(p.Base()))
	if mt, ok := suffixMimeTypes[ext]; ok {
		return mt
	}
	return DefaultMimeType
}
