package domain

import "errors"

var (
	ErrInvalidCapacity    = errors.New("queue size per producer must be positive")
	ErrUnknownProducer    = errors.New("unknown producer")
	ErrUnknownCart        = errors.New("unknown cart")
	ErrCartSpaceExhausted = errors.New("cart id space exhausted")

	// ErrSlotUnderflow means a producer slot was released twice. It is a
	// bookkeeping bug, never a contention signal.
	ErrSlotUnderflow = errors.New("producer occupancy underflow")
)
