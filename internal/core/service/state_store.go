package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"stockpilot/internal/core/domain"
	"stockpilot/internal/port"
)

// ErrInvalidInput marks structurally invalid input: a non-positive sale
// quantity, an empty catalog handed to the simulator. Business-as-usual
// conditions (already-received order, already-zero stock) never error.
var ErrInvalidInput = errors.New("invalid input")

const (
	defaultReorderPoint = 10
	defaultLeadTimeDays = 2
)

// SeedSource supplies reference data for the first run, when the
// gateway has no persisted catalog yet.
type SeedSource interface {
	Seed() (skus []domain.SKU, stores []domain.Store, inventory []domain.InventoryRecord, err error)
}

// StateStore owns the canonical in-memory collections and serializes
// every mutation behind one mutex. The gateway holds a durable mirror,
// written after each in-memory change; a failed write is returned to
// the caller as a warning-class error but never rolls the change back.
type StateStore struct {
	gw   port.Gateway
	seed SeedSource

	mu        sync.Mutex
	skus      []domain.SKU
	stores    []domain.Store
	inventory []domain.InventoryRecord
	sales     []domain.Sale
	orders    []domain.PurchaseOrder
}

// NewStateStore returns an empty store. seed may be nil when first-run
// seeding is not wanted.
func NewStateStore(gw port.Gateway, seed SeedSource) *StateStore {
	return &StateStore{gw: gw, seed: seed}
}

// Load populates the collections from the gateway, seeding on first run
// (no persisted skus key), then reconciles: every (store, SKU) pair
// gets an inventory record before anything reads the collection. Safe
// to call repeatedly; reconciliation never duplicates records.
func (s *StateStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.gw.Get(ctx, port.KeySKUs, &s.skus)
	if err != nil {
		return fmt.Errorf("load skus: %w", err)
	}

	if !found && s.seed != nil {
		if err := s.seedLocked(ctx); err != nil {
			return err
		}
	} else if found {
		reads := []struct {
			key string
			out any
		}{
			{port.KeyStores, &s.stores},
			{port.KeyInventory, &s.inventory},
			{port.KeySales, &s.sales},
			{port.KeyPurchaseOrders, &s.orders},
		}
		for _, r := range reads {
			if _, err := s.gw.Get(ctx, r.key, r.out); err != nil {
				return fmt.Errorf("load %s: %w", r.key, err)
			}
		}
	}

	s.reconcileLocked()
	return s.persist(ctx, port.KeyInventory, s.inventory)
}

func (s *StateStore) seedLocked(ctx context.Context) error {
	skus, stores, inventory, err := s.seed.Seed()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	s.skus, s.stores, s.inventory = skus, stores, inventory
	s.sales = []domain.Sale{}
	s.orders = []domain.PurchaseOrder{}

	writes := []struct {
		key   string
		value any
	}{
		{port.KeySKUs, s.skus},
		{port.KeyStores, s.stores},
		{port.KeyInventory, s.inventory},
		{port.KeySales, s.sales},
		{port.KeyPurchaseOrders, s.orders},
		{port.KeyAlerts, []Alert{}},
	}
	for _, w := range writes {
		if err := s.persist(ctx, w.key, w.value); err != nil {
			return err
		}
	}
	log.Printf("seeded %d skus, %d stores, %d inventory records",
		len(s.skus), len(s.stores), len(s.inventory))
	return nil
}

// reconcileLocked synthesizes a default record for every (store, SKU)
// pair that lacks one. Idempotent.
func (s *StateStore) reconcileLocked() {
	type pair struct{ storeID, skuID string }
	seen := make(map[pair]bool, len(s.inventory))
	for _, rec := range s.inventory {
		seen[pair{rec.StoreID, rec.SKUID}] = true
	}
	for _, st := range s.stores {
		for _, sku := range s.skus {
			p := pair{st.ID, sku.ID}
			if seen[p] {
				continue
			}
			seen[p] = true
			s.inventory = append(s.inventory, domain.InventoryRecord{
				StoreID:      st.ID,
				SKUID:        sku.ID,
				ReorderPoint: defaultReorderPoint,
			})
		}
	}
}

// ApplySale decrements the matching record's on-hand stock, clamped at
// zero, and prepends the sale to the log. A sale against an unknown
// (store, SKU) pair leaves stock alone but is still logged.
func (s *StateStore) ApplySale(ctx context.Context, sale domain.Sale) error {
	if sale.Qty <= 0 || sale.StoreID == "" || sale.SKUID == "" {
		return fmt.Errorf("%w: sale needs a store, a sku and a positive qty", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.findRecordLocked(sale.StoreID, sale.SKUID); rec != nil {
		rec.OnHand = max(rec.OnHand-sale.Qty, 0)
	} else {
		log.Printf("sale %s references unknown pair (%s, %s); stock untouched",
			sale.ID, sale.StoreID, sale.SKUID)
	}
	s.sales = append([]domain.Sale{sale}, s.sales...)

	return errors.Join(
		s.persist(ctx, port.KeySales, s.sales),
		s.persist(ctx, port.KeyInventory, s.inventory),
	)
}

// AdjustStock applies a signed manual correction, clamped at zero. No
// sales-log entry. Unknown pairs are a no-op.
func (s *StateStore) AdjustStock(ctx context.Context, storeID, skuID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findRecordLocked(storeID, skuID)
	if rec == nil {
		log.Printf("adjust references unknown pair (%s, %s); ignored", storeID, skuID)
		return nil
	}
	rec.OnHand = max(rec.OnHand+delta, 0)
	return s.persist(ctx, port.KeyInventory, s.inventory)
}

// AddOrder prepends one purchase order. Reorder policy is the caller's
// concern; nothing is re-evaluated here.
func (s *StateStore) AddOrder(ctx context.Context, order domain.PurchaseOrder) error {
	return s.AddOrders(ctx, []domain.PurchaseOrder{order})
}

// AddOrders prepends a batch, preserving its relative order, with a
// single persistence write.
func (s *StateStore) AddOrders(ctx context.Context, orders []domain.PurchaseOrder) error {
	if len(orders) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append(append([]domain.PurchaseOrder{}, orders...), s.orders...)
	return s.persist(ctx, port.KeyPurchaseOrders, s.orders)
}

// TransitionOrder is the single primitive behind send and receive. When
// the order is unknown or the status machine forbids the move (see
// OrderStatus.CanTransition), the call is a silent no-op, which makes
// repeated application idempotent. Otherwise the status becomes to and
// onTransition, if any, runs with the store's lock held and the
// post-transition order. A non-nil hook is assumed to touch inventory,
// which is then persisted alongside the orders.
func (s *StateStore) TransitionOrder(ctx context.Context, orderID string, to domain.OrderStatus, onTransition func(domain.PurchaseOrder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 || !s.orders[idx].Status.CanTransition(to) {
		return nil
	}

	s.orders[idx].Status = to
	err := s.persist(ctx, port.KeyPurchaseOrders, s.orders)
	if onTransition != nil {
		onTransition(s.orders[idx])
		err = errors.Join(err, s.persist(ctx, port.KeyInventory, s.inventory))
	}
	return err
}

// BulkTransition applies the TransitionOrder rule to every order the
// status machine lets move to to, returning how many moved.
func (s *StateStore) BulkTransition(ctx context.Context, to domain.OrderStatus, onTransition func(domain.PurchaseOrder)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := 0
	for i := range s.orders {
		if !s.orders[i].Status.CanTransition(to) {
			continue
		}
		s.orders[i].Status = to
		if onTransition != nil {
			onTransition(s.orders[i])
		}
		moved++
	}
	if moved == 0 {
		return 0, nil
	}

	err := s.persist(ctx, port.KeyPurchaseOrders, s.orders)
	if onTransition != nil {
		err = errors.Join(err, s.persist(ctx, port.KeyInventory, s.inventory))
	}
	return moved, err
}

// SendOrder moves one CREATED order to SENT.
func (s *StateStore) SendOrder(ctx context.Context, orderID string) error {
	return s.TransitionOrder(ctx, orderID, domain.OrderStatusSent, nil)
}

// ReceiveOrder moves one SENT order to RECEIVED and credits its
// quantity back to the matching record.
func (s *StateStore) ReceiveOrder(ctx context.Context, orderID string) error {
	return s.TransitionOrder(ctx, orderID, domain.OrderStatusReceived, s.restockLocked)
}

// SendAll moves every CREATED order to SENT.
func (s *StateStore) SendAll(ctx context.Context) (int, error) {
	return s.BulkTransition(ctx, domain.OrderStatusSent, nil)
}

// ReceiveAll moves every SENT order to RECEIVED, crediting each
// quantity back onto inventory.
func (s *StateStore) ReceiveAll(ctx context.Context) (int, error) {
	return s.BulkTransition(ctx, domain.OrderStatusReceived, s.restockLocked)
}

// restockLocked credits a received order's quantity back to the
// matching record, creating the record when the pair is unknown. That
// creation is a deliberate recovery path, not an error. Runs with the
// store lock held as a TransitionOrder hook.
func (s *StateStore) restockLocked(order domain.PurchaseOrder) {
	if rec := s.findRecordLocked(order.StoreID, order.SKUID); rec != nil {
		rec.OnHand += order.Qty
		return
	}
	s.inventory = append(s.inventory, domain.InventoryRecord{
		StoreID:      order.StoreID,
		SKUID:        order.SKUID,
		OnHand:       order.Qty,
		ReorderPoint: defaultReorderPoint,
	})
}

// ClearOrders discards the whole order collection. A destructive reset;
// inventory and sales are untouched.
func (s *StateStore) ClearOrders(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = []domain.PurchaseOrder{}
	return s.persist(ctx, port.KeyPurchaseOrders, s.orders)
}

func (s *StateStore) findRecordLocked(storeID, skuID string) *domain.InventoryRecord {
	for i := range s.inventory {
		if s.inventory[i].StoreID == storeID && s.inventory[i].SKUID == skuID {
			return &s.inventory[i]
		}
	}
	return nil
}

func (s *StateStore) persist(ctx context.Context, key string, value any) error {
	if err := s.gw.Set(ctx, key, value); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
