package service

import (
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/core/domain"
)

// EvaluateInventory is the reorder decision function. Pure: it reads
// the given snapshot and SKU map, mutates nothing, and emits one
// CREATED purchase order per record whose effective on-hand stock has
// fallen to its reorder point or below. The order refills to MaxStock
// but never drops under the SKU's minimum order quantity, even when
// that overshoots the ceiling. ETA is now plus the record's lead time
// (default 2 days).
//
// For a fixed snapshot the emitted (storeId, skuId, qty) triples are
// reproducible; only IDs and timestamps vary. The function does not
// dedup against already-pending CREATED orders, so evaluating the same
// snapshot twice emits duplicates; callers evaluate once per applied
// sale.
func EvaluateInventory(inventory []domain.InventoryRecord, skus map[string]domain.SKU, now time.Time) []domain.PurchaseOrder {
	var orders []domain.PurchaseOrder
	for _, rec := range inventory {
		effective := rec.EffectiveOnHand()
		if effective > rec.ReorderPoint {
			continue
		}

		lead := rec.LeadTimeDays
		if lead <= 0 {
			lead = defaultLeadTimeDays
		}
		orders = append(orders, domain.PurchaseOrder{
			ID:        uuid.NewString(),
			SKUID:     rec.SKUID,
			StoreID:   rec.StoreID,
			Qty:       max(rec.MaxStock-effective, skus[rec.SKUID].MinOrderQty()),
			Status:    domain.OrderStatusCreated,
			CreatedAt: now,
			ETA:       now.Add(time.Duration(lead) * 24 * time.Hour),
		})
	}
	return orders
}
