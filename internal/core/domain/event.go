package domain

import "time"

type EventKind string

const (
	EventProducerRegistered EventKind = "producer_registered"
	EventPublished          EventKind = "published"
	EventCartCreated        EventKind = "cart_created"
	EventAddedToCart        EventKind = "added_to_cart"
	EventRemovedFromCart    EventKind = "removed_from_cart"
	EventOrderPlaced        EventKind = "order_placed"
)

// Event describes one marketplace operation after it completed. OK is false
// when the operation returned a retry signal (queue full, item absent).
type Event struct {
	Kind     EventKind
	Producer ProducerID
	Cart     CartID
	Item     Item
	OK       bool
	Lines    []Entry
	At       time.Time
}

// Snapshot is a point-in-time view of the marketplace, used for inspection.
type Snapshot struct {
	Capacity  int
	Occupancy map[ProducerID]int
	Available []Entry
	Carts     map[CartID][]Entry
}
