package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirStore serves artifacts from a local directory tree. Used for local runs
// and tests; remote paths map onto the tree with their slashes preserved.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at the given directory.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Fetch copies the artifact at remotePath into destPath.
func (s *DirStore) Fetch(ctx context.Context, remotePath, destPath string) error {
	if err := ctx.Err(); err != nil {
		return NewFetchError(remotePath, err)
	}
	src, err := os.Open(filepath.Join(s.root, filepath.FromSlash(remotePath)))
	if err != nil {
		return NewFetchError(remotePath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return NewFetchError(remotePath, fmt.Errorf("creating destination directory: %w", err))
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return NewFetchError(remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		return NewFetchError(remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return NewFetchError(remotePath, err)
	}
	return nil
}

// Read returns the content of the artifact at remotePath.
func (s *DirStore) Read(ctx context.Context, remotePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewFetchError(remotePath, err)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(remotePath)))
	if err != nil {
		return nil, NewFetchError(remotePath, err)
	}
	return data, nil
}
