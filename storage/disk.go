package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore writes objects into a local directory served under a URL prefix.
type DiskStore struct {
	dir    string
	prefix string
}

func NewDiskStore(dir, prefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, prefix: "/" + strings.Trim(prefix, "/")}, nil
}

func (d *DiskStore) Dir() string {
	return d.dir
}

func (d *DiskStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	f, err := os.OpenFile(filepath.Join(d.dir, filepath.Base(key)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

func (d *DiskStore) URL(_ context.Context, key string) (string, error) {
	return path.Join(d.prefix, filepath.Base(key)), nil
}
