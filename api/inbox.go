package api

import (
	"sync"
	"time"
)

// DefaultInboxCapacity bounds how many webhook deliveries are retained.
const DefaultInboxCapacity = 1024

// Delivery is one webhook notification.
type Delivery struct {
	GUID       string    `json:"guid"`
	ReceivedAt time.Time `json:"received_at"`
}

// Inbox keeps the most recent webhook deliveries in arrival order.
type Inbox struct {
	mu       sync.Mutex
	items    []Delivery
	capacity int
}

// NewInbox returns an inbox that drops the oldest delivery once full.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{capacity: capacity}
}

// Add records a delivery.
func (in *Inbox) Add(guid string, at time.Time) Delivery {
	d := Delivery{GUID: guid, ReceivedAt: at.UTC()}
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.items) == in.capacity {
		copy(in.items, in.items[1:])
		in.items = in.items[:len(in.items)-1]
	}
	in.items = append(in.items, d)
	return d
}

// List returns a copy of the retained deliveries, oldest first.
func (in *Inbox) List() []Delivery {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Delivery, len(in.items))
	copy(out, in.items)
	return out
}
