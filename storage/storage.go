// Package storage keeps uploaded message attachments.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the attachment size limit.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("file type is not allowed")
	ErrEmpty           = errors.New("file is empty")
)

// AllowedTypes lists the accepted attachment types.
var AllowedTypes = []string{
	"image/png",
	"image/jpeg",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ObjectStore is where accepted bytes end up.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

// File describes a stored attachment.
type File struct {
	URL        string `json:"fileUrl"`
	Name       string `json:"fileName"`
	MimeType   string `json:"fileType"`
	Size       int64  `json:"fileSize"`
	StoredName string `json:"storedName"`
}

// Uploader validates attachments by content and stores them under random names.
type Uploader struct {
	store    ObjectStore
	maxBytes int64
}

func NewUploader(store ObjectStore, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes}
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Accept reads r, checks size and sniffed type, and stores it.
func (u *Uploader) Accept(ctx context.Context, originalName string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrTooLarge
	}

	mime := mimetype.Detect(data)
	if !mime.Is(AllowedTypes[0]) && !mime.Is(AllowedTypes[1]) &&
		!mime.Is(AllowedTypes[2]) && !mime.Is(AllowedTypes[3]) {
		return nil, ErrUnsupportedType
	}

	contentType := baseType(mime.String())
	stored := uuid.NewString() + mime.Extension()
	if err := u.store.Put(ctx, stored, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}
	url, err := u.store.URL(ctx, stored)
	if err != nil {
		return nil, err
	}

	return &File{
		URL:        url,
		Name:       cleanName(originalName, stored),
		MimeType:   contentType,
		Size:       int64(len(data)),
		StoredName: stored,
	}, nil
}

// baseType drops parameters such as charset.
func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}

func cleanName(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
