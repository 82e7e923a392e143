// Package content provides the file content sources the browser reads from.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/observability"
)

// DefaultMaxBytes caps a single file read.
const DefaultMaxBytes = 8 << 20

// HTTPFetcher reads files from a static file server rooted at BaseURL.
type HTTPFetcher struct {
	BaseURL  string
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, MaxBytes: DefaultMaxBytes}
}

func (f *HTTPFetcher) fileURL(path string) string {
	segs := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return f.BaseURL + "/" + strings.Join(segs, "/")
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (string, error) {
	target := f.fileURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeValidationError, "build content request")
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		observability.ContentFetchesTotal.WithLabelValues("http", "error").Inc()
		return "", domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "fetch file content"),
			domainerrors.CtxPath, path,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.ContentFetchesTotal.WithLabelValues("http", "error").Inc()
		code := domainerrors.CodeUnavailable
		if resp.StatusCode == http.StatusNotFound {
			code = domainerrors.CodeNotFound
		}
		return "", domainerrors.AddContext(
			domainerrors.New(code, fmt.Sprintf("content server returned status %d", resp.StatusCode)),
			domainerrors.CtxPath, path,
		)
	}

	body, err := readLimited(resp.Body, f.MaxBytes)
	if err != nil {
		observability.ContentFetchesTotal.WithLabelValues("http", "error").Inc()
		return "", domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	observability.ContentFetchesTotal.WithLabelValues("http", "ok").Inc()
	return body, nil
}

func readLimited(r io.Reader, max int64) (string, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read file content")
	}
	if int64(len(data)) > max {
		return "", domainerrors.Newf(domainerrors.CodeNotSupported, "file exceeds %d bytes", max)
	}
	return string(data), nil
}
