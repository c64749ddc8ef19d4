package domain

// Receipt is one pending inbound quantity on an inventory record.
type Receipt struct {
	Qty int `json:"qty"`
}

// InventoryRecord is the stock state for one (store, SKU) pair. The pair
// is unique across the collection and OnHand never goes negative.
type InventoryRecord struct {
	StoreID      string    `json:"storeId"`
	SKUID        string    `json:"skuId"`
	OnHand       int       `json:"onHand"`
	ReorderPoint int       `json:"reorderPoint"`
	MaxStock     int       `json:"maxStock"`
	LeadTimeDays int       `json:"leadTimeDays,omitempty"`
	Incoming     []Receipt `json:"incoming,omitempty"`
}

// EffectiveOnHand is on-hand stock plus all pending receipts; the
// quantity reorder decisions are made against.
func (r InventoryRecord) EffectiveOnHand() int {
	total := r.OnHand
	for _, in := range r.Incoming {
		total += in.Qty
	}
	return total
}

// Clone returns a copy that shares no slice storage with the receiver.
func (r InventoryRecord) Clone() InventoryRecord {
	out := r
	if r.Incoming != nil {
		out.Incoming = make([]Receipt, len(r.Incoming))
		copy(out.Incoming, r.Incoming)
	}
	return out
}
