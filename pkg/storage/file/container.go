// Package file implements the storage container interface for local
// filesystem paths.
//
// Each container is a subdirectory under a base directory and object
// keys are relative paths within it. This backend is intended for local
// development and tests.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/billy784512/azure-blob-video-translator/pkg/storage"
)

// Container implements storage.Container over a local directory.
type Container struct {
	name string
	dir  string
}

var _ storage.Container = (*Container)(nil)

// New creates the container directory under baseDir if needed.
func New(baseDir, name string) (*Container, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base dir is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("container name is required")
	}

	dir := filepath.Join(filepath.Clean(baseDir), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &storage.StorageError{Op: "New", Container: name, Err: err}
	}
	return &Container{name: name, dir: dir}, nil
}

// Name returns the configured container name.
func (c *Container) Name() string {
	return c.name
}

// Exists reports whether the object is present.
func (c *Container) Exists(ctx context.Context, key string) (bool, error) {
	_ = ctx
	_, err := os.Stat(c.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &storage.StorageError{Op: "Exists", Container: c.name, Key: key, Err: err}
	}
	return true, nil
}

// Download copies the object to localPath, creating or truncating it.
func (c *Container) Download(ctx context.Context, key, localPath string) error {
	_ = ctx
	src, err := os.Open(c.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &storage.StorageError{Op: "Download", Container: c.name, Key: key, Err: storage.ErrNotFound}
		}
		return &storage.StorageError{Op: "Download", Container: c.name, Key: key, Err: err}
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(localPath)
	if err != nil {
		return &storage.StorageError{Op: "Download", Container: c.name, Key: key, Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return &storage.StorageError{Op: "Download", Container: c.name, Key: key, Err: err}
	}
	return dst.Close()
}

// Upload stores the local file under key, overwriting any existing object.
func (c *Container) Upload(ctx context.Context, key, localPath string) (string, error) {
	_ = ctx
	src, err := os.Open(localPath)
	if err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.name, Key: key, Err: err}
	}
	defer func() { _ = src.Close() }()

	target := c.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.name, Key: key, Err: err}
	}

	dst, err := os.Create(target)
	if err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.name, Key: key, Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", &storage.StorageError{Op: "Upload", Container: c.name, Key: key, Err: err}
	}
	if err := dst.Close(); err != nil {
		return "", &storage.StorageError{Op: "Upload", Container: c.name, Key: key, Err: err}
	}
	return c.URL(key), nil
}

// URL returns a file URL for key.
func (c *Container) URL(key string) string {
	return "file://" + c.path(key)
}

func (c *Container) path(key string) string {
	return filepath.Join(c.dir, filepath.FromSlash(key))
}
