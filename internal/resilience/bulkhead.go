package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Bulkhead limits concurrent upstream calls using a weighted semaphore.
// Single-flight only coalesces misses of one key; a burst of misses across
// many ids still needs a ceiling on what reaches the backend.
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a Bulkhead that allows at most limit concurrent calls.
func NewBulkhead(limit int) *Bulkhead {
	if limit < 1 {
		limit = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot.
// Blocks if all slots are busy. Returns ctx.Err() if the context
// is cancelled while waiting for a slot.
// If the bulkhead is nil, fn is executed directly.
func (b *Bulkhead) Run(ctx context.Context, fn func() error) error {
	if b == nil || b.sem == nil {
		return fn()
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return fn()
}
