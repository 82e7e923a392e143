package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/observability"
)

// FSFetcher reads files below a local root directory. Paths escaping the
// root are rejected by os.Root.
type FSFetcher struct {
	root     *os.Root
	MaxBytes int64
}

func NewFSFetcher(dir string) (*FSFetcher, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "open content root"),
			domainerrors.CtxPath, dir,
		)
	}
	return &FSFetcher{root: root, MaxBytes: DefaultMaxBytes}, nil
}

func (f *FSFetcher) Close() error { return f.root.Close() }

func (f *FSFetcher) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	file, err := f.root.Open(strings.TrimLeft(path, "/"))
	if err != nil {
		observability.ContentFetchesTotal.WithLabelValues("fs", "error").Inc()
		code := domainerrors.CodeUnavailable
		if errors.Is(err, fs.ErrNotExist) {
			code = domainerrors.CodeNotFound
		} else if errors.Is(err, fs.ErrPermission) {
			code = domainerrors.CodePermissionDenied
		}
		return "", domainerrors.AddContext(
			domainerrors.Wrap(err, code, "open file"),
			domainerrors.CtxPath, path,
		)
	}
	defer file.Close()

	body, err := readLimited(file, f.MaxBytes)
	if err != nil {
		observability.ContentFetchesTotal.WithLabelValues("fs", "error").Inc()
		return "", domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	observability.ContentFetchesTotal.WithLabelValues("fs", "ok").Inc()
	return body, nil
}
