package session

import (
	"sync"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/observability"
)

// Operation classes for request tokens. A completion is applied only if no
// newer request of the same class was issued while it was in flight.
const (
	ClassNavigate   = "navigate"
	ClassReferences = "references"
	ClassGrep       = "grep"
	ClassIncludes   = "includes"
)

type tokens struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func (t *tokens) issue(class string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		t.latest = make(map[string]uint64)
	}
	t.latest[class]++
	return t.latest[class]
}

func (t *tokens) current(class string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[class] == token
}

// check returns a STALE_RESULT error when token has been superseded.
func (t *tokens) check(class string, token uint64) error {
	if t.current(class, token) {
		return nil
	}
	observability.StaleResultsTotal.WithLabelValues(class).Inc()
	return domainerrors.AddContext(
		domainerrors.New(domainerrors.CodeStale, "superseded by a newer request"),
		domainerrors.CtxOperation, class,
	)
}
