package domain

import "strconv"

// ProducerID identifies a registered producer.
type ProducerID string

// CartID identifies a live cart.
type CartID uint32

func (c CartID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// Entry is one available unit: the item plus the producer whose slot it holds.
type Entry struct {
	Item     Item
	Producer ProducerID
}
