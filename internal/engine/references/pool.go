package references

import (
	"context"
	"sync"
)

// mapBounded applies fn to every item with at most workers calls in flight.
// Workers pull the next item as soon as they finish one, so a slow fetch
// never holds back the rest of the queue. Results keep the input order.
// Items not started before ctx is cancelled keep their zero value.
func mapBounded[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) R, progress func(done, total int)) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	queue := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				out[i] = fn(ctx, items[i])
				if progress != nil {
					mu.Lock()
					done++
					progress(done, len(items))
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for i := range items {
		select {
		case queue <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
	return out
}
