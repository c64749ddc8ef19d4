package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "CREATED"
	OrderStatusSent     OrderStatus = "SENT"
	OrderStatusReceived OrderStatus = "RECEIVED"
)

// CanTransition reports whether the status machine allows moving from s
// to next. Transitions only move forward one step; RECEIVED is terminal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return next == OrderStatusSent
	case OrderStatusSent:
		return next == OrderStatusReceived
	default:
		return false
	}
}

// PurchaseOrder is a replenishment request raised by the reorder
// evaluator. Status only ever moves CREATED -> SENT -> RECEIVED.
type PurchaseOrder struct {
	ID        string      `json:"id"`
	SKUID     string      `json:"skuId"`
	StoreID   string      `json:"storeId"`
	Qty       int         `json:"qty"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	ETA       time.Time   `json:"eta"`
}
