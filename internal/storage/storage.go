// Package storage keeps uploaded team pictures on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for files that are not jpg, jpeg, png or
// webp images.
var ErrUnsupportedFormat = errors.New("unsupported image format: allowed jpg, jpeg, png, webp")

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Store saves images and returns the public URL they can be fetched from.
type Store interface {
	Put(ctx context.Context, filename string, body io.Reader, size int64) (string, error)
	// Delete removes an object previously returned by Put. URLs this store
	// did not produce are ignored.
	Delete(ctx context.Context, url string) error
}

// Extension returns the lower-cased extension of filename if it is an
// allowed image type.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := contentTypes[ext]; !ok {
		return "", ErrUnsupportedFormat
	}
	return ext, nil
}

// ContentType returns the MIME type for an allowed extension.
func ContentType(ext string) string {
	return contentTypes[ext]
}

// objectName generates a unique, time-ordered object name keeping ext.
func objectName(ext string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString() + ext
	}
	return id.String() + ext
}

// isObjectName reports whether name has the shape objectName produces: a
// UUID followed by an allowed extension, with no directory part.
func isObjectName(name string) bool {
	ext, err := Extension(name)
	if err != nil || ext != filepath.Ext(name) {
		return false
	}
	_, err = uuid.Parse(strings.TrimSuffix(name, ext))
	return err == nil && len(name) == 36+len(ext)
}
