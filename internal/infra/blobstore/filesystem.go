// Package blobstore keeps receipt files on the local filesystem under content-addressed names.
package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"landten/internal/domain/receipt"

	"github.com/zeebo/blake3"
)

const locatorLen = 64

var ErrInvalidLocator = errors.New("blobstore: invalid locator")

// FilesystemStore implements receipt.BlobStore. A locator is the hex keyed BLAKE3
// hash of the content, so identical uploads share one file.
type FilesystemStore struct {
	root string
	key  [32]byte
}

// NewFilesystemStore creates root if needed. secret is stretched into the hash key.
func NewFilesystemStore(root, secret string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory: %w", err)
	}
	return &FilesystemStore{
		root: root,
		key:  blake3.Sum256([]byte("landten receipt locator v1\x00" + secret)),
	}, nil
}

// Locator computes the locator data would be stored under.
func (s *FilesystemStore) Locator(data []byte) (string, error) {
	hasher, err := blake3.NewKeyed(s.key[:])
	if err != nil {
		return "", fmt.Errorf("blobstore: keyed hash init: %w", err)
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *FilesystemStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	locator, err := s.Locator(data)
	if err != nil {
		return "", err
	}
	path := s.path(locator)
	if _, err := os.Stat(path); err == nil {
		return locator, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("blobstore: create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blobstore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blobstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blobstore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("blobstore: commit: %w", err)
	}
	return locator, nil
}

func (s *FilesystemStore) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validLocator(locator) {
		return nil, ErrInvalidLocator
	}
	data, err := os.ReadFile(s.path(locator))
	if errors.Is(err, os.ErrNotExist) {
		return nil, receipt.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: read: %w", err)
	}
	return data, nil
}

func (s *FilesystemStore) path(locator string) string {
	return filepath.Join(s.root, locator[:2], locator[2:4], locator)
}

func validLocator(l string) bool {
	if len(l) != locatorLen {
		return false
	}
	_, err := hex.DecodeString(l)
	return err == nil
}
