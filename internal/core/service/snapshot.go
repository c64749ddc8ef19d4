package service

import "stockpilot/internal/core/domain"

// Alert flags a record whose effective on-hand stock has reached its
// reorder point.
type Alert struct {
	StoreID      string `json:"storeId"`
	SKUID        string `json:"skuId"`
	OnHand       int    `json:"onHand"`
	ReorderPoint int    `json:"reorderPoint"`
}

// Snapshot is an immutable copy of the store's state for readers
// (presentation, evaluation). It shares no storage with the live
// collections, so later mutations never race with a reader.
type Snapshot struct {
	SKUs      []domain.SKU             `json:"skus"`
	Stores    []domain.Store           `json:"stores"`
	Inventory []domain.InventoryRecord `json:"inventory"`
	Sales     []domain.Sale            `json:"sales"`
	Orders    []domain.PurchaseOrder   `json:"orders"`
	Alerts    []Alert                  `json:"alerts"`
}

// Snapshot copies every collection and derives the low-stock alerts.
func (s *StateStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SKUs:      append([]domain.SKU{}, s.skus...),
		Stores:    append([]domain.Store{}, s.stores...),
		Inventory: cloneInventory(s.inventory),
		Sales:     append([]domain.Sale{}, s.sales...),
		Orders:    append([]domain.PurchaseOrder{}, s.orders...),
		Alerts:    []Alert{},
	}
	for _, rec := range s.inventory {
		if rec.EffectiveOnHand() <= rec.ReorderPoint {
			snap.Alerts = append(snap.Alerts, Alert{
				StoreID:      rec.StoreID,
				SKUID:        rec.SKUID,
				OnHand:       rec.OnHand,
				ReorderPoint: rec.ReorderPoint,
			})
		}
	}
	return snap
}

// InventorySnapshot copies just the inventory collection; what the
// reorder evaluator runs against.
func (s *StateStore) InventorySnapshot() []domain.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneInventory(s.inventory)
}

// SKUMap returns the catalog keyed by SKU id.
func (s *StateStore) SKUMap() map[string]domain.SKU {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.SKU, len(s.skus))
	for _, sku := range s.skus {
		m[sku.ID] = sku
	}
	return m
}

// Catalog returns copies of the immutable reference collections.
func (s *StateStore) Catalog() ([]domain.SKU, []domain.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SKU{}, s.skus...), append([]domain.Store{}, s.stores...)
}

func cloneInventory(records []domain.InventoryRecord) []domain.InventoryRecord {
	out := make([]domain.InventoryRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
