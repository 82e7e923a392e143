package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"xplore/internal/core/ports"
	"xplore/internal/shared/observability"
)

var _ ports.HistoryStore = (*HistoryWriter)(nil)

const defaultBatchSize = 64

// HistoryWriter puts a write-behind queue in front of a HistoryStore.
// Saves return once queued; a background worker flushes them, keeping only
// the newest state per session in each batch. Loads see queued states
// before they reach the store. A state older than the last one persisted
// for its session is never written.
type HistoryWriter struct {
	store     ports.HistoryStore
	queue     *MemoryQueue
	batchSize int
	interval  time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]queued

	// storeMu orders store writes; written holds the newest seq persisted
	// per session.
	storeMu sync.Mutex
	written map[string]uint64

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

type queued struct {
	seq   uint64
	state ports.HistoryState
}

// NewHistoryWriter wraps store. capacity bounds the queue; when it is full
// SaveHistory writes through synchronously.
func NewHistoryWriter(store ports.HistoryStore, capacity int, flushInterval time.Duration) *HistoryWriter {
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	return &HistoryWriter{
		store:     store,
		queue:     NewMemoryQueue(capacity),
		batchSize: defaultBatchSize,
		interval:  flushInterval,
		pending:   make(map[string]queued),
		written:   make(map[string]uint64),
	}
}

// Start launches the flush worker. Without it, queued writes are flushed
// by Close.
func (w *HistoryWriter) Start() {
	w.startOnce.Do(func() {
		w.done = make(chan struct{})
		go func() {
			defer close(w.done)
			w.run(context.Background())
		}()
	})
}

// Close stops accepting writes and flushes everything queued.
func (w *HistoryWriter) Close() error {
	w.closeOnce.Do(func() {
		_ = w.queue.Close()
		w.startOnce.Do(func() {})
		if w.done != nil {
			<-w.done
			return
		}
		w.run(context.Background())
	})
	return nil
}

func (w *HistoryWriter) SaveHistory(ctx context.Context, sessionID string, state ports.HistoryState) error {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.pending[sessionID] = queued{seq: seq, state: state}
	enqueued := w.queue.Enqueue(Write{SessionID: sessionID, State: state, seq: seq})
	w.mu.Unlock()

	if enqueued {
		observability.HistoryQueueDepth.Set(float64(w.queue.Len()))
		return nil
	}

	observability.HistoryWritesTotal.WithLabelValues("direct").Inc()
	_, err := w.persist(ctx, sessionID, seq, state)
	w.settle(sessionID, seq)
	return err
}

// persist writes state unless a newer state of the session already reached
// the store. It reports whether the store was written.
func (w *HistoryWriter) persist(ctx context.Context, sessionID string, seq uint64, state ports.HistoryState) (bool, error) {
	w.storeMu.Lock()
	defer w.storeMu.Unlock()
	if w.written[sessionID] > seq {
		return false, nil
	}
	if err := w.store.SaveHistory(ctx, sessionID, state); err != nil {
		return false, err
	}
	w.written[sessionID] = seq
	return true, nil
}

func (w *HistoryWriter) LoadHistory(ctx context.Context, sessionID string) (ports.HistoryState, bool, error) {
	w.mu.Lock()
	q, ok := w.pending[sessionID]
	w.mu.Unlock()
	if ok {
		return q.state, true, nil
	}
	return w.store.LoadHistory(ctx, sessionID)
}

// settle drops the pending entry of sessionID unless a newer save replaced
// it.
func (w *HistoryWriter) settle(sessionID string, seq uint64) {
	w.mu.Lock()
	if q, ok := w.pending[sessionID]; ok && q.seq <= seq {
		delete(w.pending, sessionID)
	}
	w.mu.Unlock()
}

func (w *HistoryWriter) run(ctx context.Context) {
	for {
		batch, err := w.queue.DequeueBatch(ctx, w.batchSize, w.interval)
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("history queue dequeue failed", "error", err)
			continue
		}
		if len(batch) > 0 {
			w.flush(ctx, batch)
		}
		observability.HistoryQueueDepth.Set(float64(w.queue.Len()))
		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func (w *HistoryWriter) flush(ctx context.Context, batch []Write) {
	latest := make(map[string]Write, len(batch))
	order := make([]string, 0, len(batch))
	for _, item := range batch {
		prev, seen := latest[item.SessionID]
		if !seen {
			order = append(order, item.SessionID)
		} else {
			observability.HistoryWritesTotal.WithLabelValues("coalesced").Inc()
		}
		if !seen || item.seq > prev.seq {
			latest[item.SessionID] = item
		}
	}

	for _, id := range order {
		item := latest[id]
		saved, err := w.persist(ctx, id, item.seq, item.State)
		switch {
		case err != nil:
			observability.HistoryWritesTotal.WithLabelValues("failed").Inc()
			slog.Warn("failed to save session history", "session", id, "error", err)
		case saved:
			observability.HistoryWritesTotal.WithLabelValues("saved").Inc()
		default:
			observability.HistoryWritesTotal.WithLabelValues("superseded").Inc()
		}
		w.settle(id, item.seq)
	}
}
