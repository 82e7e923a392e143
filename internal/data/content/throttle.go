package content

import (
	"context"

	"xplore/internal/core/ports"
	"xplore/internal/shared/util"
)

// ThrottledFetcher paces requests to another fetcher so workspace scans do
// not flood the file server.
type ThrottledFetcher struct {
	next    ports.ContentFetcher
	limiter *util.Limiter
}

// NewThrottledFetcher allows perSecond fetches with the given burst.
// perSecond <= 0 disables pacing.
func NewThrottledFetcher(next ports.ContentFetcher, perSecond float64, burst int) *ThrottledFetcher {
	return &ThrottledFetcher{next: next, limiter: util.NewLimiter(perSecond, burst)}
}

func (t *ThrottledFetcher) Fetch(ctx context.Context, path string) (string, error) {
	if err := t.limiter.Wait(ctx, 1); err != nil {
		return "", err
	}
	return t.next.Fetch(ctx, path)
}
