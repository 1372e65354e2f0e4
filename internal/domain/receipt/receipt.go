// Package receipt defines accepted receipt files and the blob store contract.
package receipt

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrEmpty           = errors.New("receipt: file is empty")
	ErrTooLarge        = errors.New("receipt: file is too large")
	ErrUnsupportedType = errors.New("receipt: only images and PDF documents are accepted")
	ErrBlobNotFound    = errors.New("receipt: blob not found")
)

// BlobStore keeps receipt bytes outside the database.
type BlobStore interface {
	Store(ctx context.Context, data []byte) (locator string, err error)
	Retrieve(ctx context.Context, locator string) ([]byte, error)
}

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// Inspect checks size and content type and returns the sniffed content type.
// maxBytes <= 0 disables the size check.
func Inspect(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	ct := ContentType(data)
	if !allowedTypes[ct] {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// ContentType sniffs the media type of data without parameters.
func ContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
