package domain

import "time"

// Sale is one demand event. Immutable once created; the sales log keeps
// them most-recent-first.
type Sale struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	StoreID   string    `json:"storeId"`
	SKUID     string    `json:"skuId"`
	Qty       int       `json:"qty"`
	Channel   string    `json:"channel"`
}
