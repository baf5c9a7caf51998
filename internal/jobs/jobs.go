// Package jobs holds the background job handlers run by the queue worker.
package jobs

import (
	"golang.org/x/time/rate"

	"github.com/noah-isme/gema-lms-api/internal/queue"
)

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// newLimiter returns a limiter allowing perSecond events; zero or less is unlimited.
func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func deliveryRetry() queue.RetryPolicy {
	return queue.StandardRetry()
}
