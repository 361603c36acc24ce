package master

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"census-grid/census"
)

// DefaultViewCapacity bounds how many recent views are remembered.
const DefaultViewCapacity = 256

// View is one filtered rendering of the master table.
type View struct {
	ID        uuid.UUID        `json:"id"`
	Seq       uint64           `json:"seq"`
	Selection census.Selection `json:"selection"`
	Columns   []string         `json:"columns"`
	Rows      census.Table     `json:"rows"`
	Version   uint64           `json:"master_version"`
	CreatedAt time.Time        `json:"created_at"`
}

// viewRef is what the registry keeps: enough to merge against a view
// without holding on to its rows.
type viewRef struct {
	seq       uint64
	selection census.Selection
	version   uint64
	createdAt time.Time
}

// Views remembers the most recent views in a ring. Older ones are evicted.
type Views struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]viewRef
	order []uuid.UUID
	next  int
}

// NewViews returns a registry holding at most capacity views.
func NewViews(capacity int) *Views {
	if capacity <= 0 {
		capacity = DefaultViewCapacity
	}
	return &Views{
		byID:  make(map[uuid.UUID]viewRef, capacity),
		order: make([]uuid.UUID, capacity),
	}
}

func (v *Views) remember(view View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if old := v.order[v.next]; old != uuid.Nil {
		delete(v.byID, old)
	}
	v.order[v.next] = view.ID
	v.next = (v.next + 1) % len(v.order)
	v.byID[view.ID] = viewRef{
		seq:       view.Seq,
		selection: view.Selection,
		version:   view.Version,
		createdAt: view.CreatedAt,
	}
}

func (v *Views) lookup(id uuid.UUID) (viewRef, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref, ok := v.byID[id]
	return ref, ok
}

// Len returns how many views are currently remembered.
func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byID)
}
