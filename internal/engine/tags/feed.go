package tags

import (
	"context"
	"fmt"
	"net/http"
	"os"

	domainerrors "xplore/internal/core/errors"
)

// LoadFile loads the feed from a local NDJSON file.
func (s *Store) LoadFile(path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "open tag feed"),
			domainerrors.CtxPath, path,
		)
	}
	defer f.Close()
	return s.Load(f)
}

// LoadURL fetches the feed over HTTP. Non-2xx responses leave the store
// untouched.
func (s *Store) LoadURL(ctx context.Context, client *http.Client, url string) (LoadStats, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LoadStats{}, domainerrors.Wrap(err, domainerrors.CodeValidationError, "build tag feed request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return LoadStats{}, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "fetch tag feed"),
			domainerrors.CtxURL, url,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LoadStats{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeUnavailable, fmt.Sprintf("tag feed returned status %d", resp.StatusCode)),
			domainerrors.CtxURL, url,
		)
	}
	return s.Load(resp.Body)
}
