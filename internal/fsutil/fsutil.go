// Package fsutil reads artifact files with path scoping and cancellation.
package fsutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileScoped reads a file by opening a root at the file's directory.
// This scopes access to the intended directory and avoids path traversal.
func ReadFileScoped(ctx context.Context, path string) ([]byte, error) {
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}
	return ReadFileInDir(ctx, dir, base)
}

// ReadFileInDir reads name relative to dir. Names that escape dir, through
// ".." or symlinks, are rejected by the underlying os.Root.
func ReadFileInDir(ctx context.Context, dir, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(&ctxReader{ctx: ctx, r: file})
}

// ctxReader stops a read loop once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
