// Copyright (c) 2025 BVK Chaitanya

package sink

import (
	"context"
	"sync"

	"github.com/bvk/triarb/gobs"
)

// Recent keeps the last few events in memory for the status api.
type Recent struct {
	mu sync.Mutex

	// events is a ring buffer; next is the slot for the next event.
	events []*gobs.OpportunityEvent
	next   int
	count  int
}

var _ Sink = &Recent{}

func NewRecent(size int) *Recent {
	if size <= 0 {
		size = 100
	}
	return &Recent{events: make([]*gobs.OpportunityEvent, size)}
}

func (r *Recent) Name() string { return "recent" }

func (r *Recent) Close() error { return nil }

func (r *Recent) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = ev
	r.next = (r.next + 1) % len(r.events)
	r.count = min(r.count+1, len(r.events))
	return nil
}

// Events returns up to limit retained events, newest first. Zero or negative
// limit returns all retained events.
func (r *Recent) Events(limit int) []*gobs.OpportunityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*gobs.OpportunityEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.events)) % len(r.events)
		result = append(result, r.events[idx])
	}
	return result
}
