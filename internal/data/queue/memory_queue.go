// Package queue buffers session history writes in memory and flushes them
// to a history store in coalesced batches.
package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"xplore/internal/core/ports"
)

// Write is one pending save of a session's history.
type Write struct {
	SessionID string
	State     ports.HistoryState

	seq uint64
}

type MemoryQueue struct {
	ch     chan Write
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan Write, capacity)}
}

// Enqueue adds w without blocking. It returns false when the queue is full
// or closed.
func (q *MemoryQueue) Enqueue(w Write) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- w:
		return true
	default:
		return false
	}
}

// DequeueBatch waits up to wait for a first item, then takes whatever else
// is immediately available up to maxItems. A closed, drained queue returns
// io.EOF, possibly together with the final batch.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]Write, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]Write, 0, maxItems)

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	select {
	case w, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, w)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return nil, nil
	default:
		if wait <= 0 {
			return nil, nil
		}
		select {
		case w, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, w)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case w, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, w)
		default:
			return batch, nil
		}
	}

	return batch, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
