// Package storage persists uploaded and generated files and turns stored paths into served URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Storage is the file capability the content pipeline and exports depend on.
// Put returns the stored path; URL turns a stored path into a public URL.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	URL(storedPath string) string
	Delete(ctx context.Context, storedPath string) error
}

var ErrInvalidKey = errors.New("invalid storage key")

// IsAbsoluteURL reports whether p is already a served URL.
func IsAbsoluteURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// CleanKey normalizes a slash-separated key and rejects keys escaping the root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// ExtensionForMIME maps an image subtype or content type to a file extension.
func ExtensionForMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	mime = strings.TrimPrefix(mime, "image/")
	switch mime {
	case "jpeg", "jpg", "pjpeg":
		return "jpg"
	case "png", "gif", "webp", "bmp":
		return mime
	case "svg+xml", "svg":
		return "svg"
	default:
		return "bin"
	}
}

// ImageExtension returns the extension for a raster image MIME type. SVG and
// non-image types report false.
func ImageExtension(mime string) (string, bool) {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/" + mime
	}
	switch ext := ExtensionForMIME(mime); ext {
	case "jpg", "png", "gif", "webp", "bmp":
		return ext, true
	}
	return "", false
}

// ContentTypeForKey guesses a content type from a key's extension.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
