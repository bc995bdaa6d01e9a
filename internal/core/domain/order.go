package domain

import "time"

type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusRecorded OrderStatus = "recorded"
)

type Order struct {
	ID        string
	CartID    CartID
	Lines     []Entry
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
