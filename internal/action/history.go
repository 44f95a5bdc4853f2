// internal/action/history.go
package action

import (
	"sync"
	"time"

	"github.com/scribeworks/scribe/internal/transform"
)

// Item records one successful transformation for the in-memory history
// ring. Items are never mutated after creation.
type Item struct {
	Kind         transform.Kind
	Instructions string
	Timestamp    time.Time
	Model        string
}

// ring is a bounded append-only buffer of recent items, oldest evicted
// first when over capacity.
type ring struct {
	mu    sync.Mutex
	items []Item
	max   int
}

func newRing(max int) *ring {
	if max <= 0 {
		max = 10
	}
	return &ring{max: max}
}

func (r *ring) Append(item Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

func (r *ring) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

func (r *ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
