package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Dir saves exported clips into a directory, replacing an existing file of the
// same name atomically.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	if root == "" {
		root = "."
	}
	return &Dir{root: root}
}

func (d *Dir) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("download: invalid file name %q", name)
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	path := filepath.Join(d.root, base)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("download: create pending file: %w", err)
	}
	defer func() {
		// no-op once committed
		_ = pending.Cleanup()
	}()

	if _, err := io.Copy(pending, readerWithContext(ctx, r)); err != nil {
		return "", fmt.Errorf("download: write %s: %w", base, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("download: commit %s: %w", base, err)
	}
	return path, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, errors.Join(errors.New("download cancelled"), err)
	}
	return c.r.Read(p)
}
