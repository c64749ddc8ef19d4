package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"stockpilot/internal/core/domain"
	"stockpilot/internal/port"
)

// Mock gateway
type mockGateway struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{data: make(map[string][]byte)}
}

func (m *mockGateway) Get(ctx context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *mockGateway) Set(ctx context.Context, key string, value any) error {
	if m.failSet {
		return errors.New("gateway down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

type staticSeed struct {
	skus      []domain.SKU
	stores    []domain.Store
	inventory []domain.InventoryRecord
}

func (s staticSeed) Seed() ([]domain.SKU, []domain.Store, []domain.InventoryRecord, error) {
	return s.skus, s.stores, s.inventory, nil
}

// newLoadedStore primes a gateway with the given collections and loads
// a store from it.
func newLoadedStore(t *testing.T, skus []domain.SKU, stores []domain.Store, inventory []domain.InventoryRecord, orders []domain.PurchaseOrder) (*StateStore, *mockGateway) {
	t.Helper()
	ctx := context.Background()
	gw := newMockGateway()

	gw.Set(ctx, port.KeySKUs, skus)
	gw.Set(ctx, port.KeyStores, stores)
	gw.Set(ctx, port.KeyInventory, inventory)
	gw.Set(ctx, port.KeySales, []domain.Sale{})
	gw.Set(ctx, port.KeyPurchaseOrders, orders)

	s := NewStateStore(gw, nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s, gw
}

func TestLoad_SeedsOnFirstRun(t *testing.T) {
	ctx := context.Background()
	gw := newMockGateway()
	s := NewStateStore(gw, staticSeed{
		skus:   []domain.SKU{{ID: "k1", Name: "Widget"}},
		stores: []domain.Store{{ID: "s1", Name: "Main"}},
	})

	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.SKUs) != 1 || len(snap.Stores) != 1 {
		t.Fatalf("expected seeded catalog, got %d skus %d stores", len(snap.SKUs), len(snap.Stores))
	}
	if _, ok := gw.data[port.KeySKUs]; !ok {
		t.Error("seed was not written back to the gateway")
	}
}

func TestLoad_SkipsSeedWhenDataExists(t *testing.T) {
	ctx := context.Background()
	gw := newMockGateway()
	gw.Set(ctx, port.KeySKUs, []domain.SKU{{ID: "persisted"}})

	s := NewStateStore(gw, staticSeed{skus: []domain.SKU{{ID: "from-seed"}}})
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.SKUs) != 1 || snap.SKUs[0].ID != "persisted" {
		t.Errorf("seed must not overwrite persisted data: %+v", snap.SKUs)
	}
}

func TestLoad_ReconcilesMissingRecords(t *testing.T) {
	skus := []domain.SKU{{ID: "k1"}, {ID: "k2"}}
	stores := []domain.Store{{ID: "s1"}, {ID: "s2"}}
	// only one of the four pairs exists up front
	inventory := []domain.InventoryRecord{
		{StoreID: "s1", SKUID: "k1", OnHand: 5, ReorderPoint: 3},
	}

	s, _ := newLoadedStore(t, skus, stores, inventory, nil)

	snap := s.Snapshot()
	if len(snap.Inventory) != 4 {
		t.Fatalf("expected 4 records after reconciliation, got %d", len(snap.Inventory))
	}

	counts := make(map[string]int)
	for _, rec := range snap.Inventory {
		counts[rec.StoreID+"/"+rec.SKUID]++
		if rec.StoreID == "s1" && rec.SKUID == "k1" {
			if rec.OnHand != 5 {
				t.Errorf("existing record was rewritten: %+v", rec)
			}
		} else {
			if rec.OnHand != 0 || rec.ReorderPoint != 10 {
				t.Errorf("synthesized record has wrong defaults: %+v", rec)
			}
		}
	}
	for pair, n := range counts {
		if n != 1 {
			t.Errorf("pair %s has %d records, want exactly 1", pair, n)
		}
	}
}

func TestLoad_Idempotent(t *testing.T) {
	skus := []domain.SKU{{ID: "k1"}, {ID: "k2"}}
	stores := []domain.Store{{ID: "s1"}}

	s, _ := newLoadedStore(t, skus, stores, nil, nil)
	first := len(s.Snapshot().Inventory)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	second := len(s.Snapshot().Inventory)

	if first != 2 || second != 2 {
		t.Errorf("expected 2 records after each Load, got %d then %d", first, second)
	}
}

func TestApplySale_Decrements(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10, ReorderPoint: 2}},
		nil)

	err := s.ApplySale(context.Background(), domain.Sale{ID: "sale-1", StoreID: "s1", SKUID: "k1", Qty: 3})
	if err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Inventory[0].OnHand != 7 {
		t.Errorf("expected on-hand 7, got %d", snap.Inventory[0].OnHand)
	}
	if len(snap.Sales) != 1 || snap.Sales[0].ID != "sale-1" {
		t.Errorf("sale not logged: %+v", snap.Sales)
	}
}

func TestApplySale_ClampsAtZero(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 2, ReorderPoint: 1}},
		nil)

	if err := s.ApplySale(context.Background(), domain.Sale{ID: "sale-1", StoreID: "s1", SKUID: "k1", Qty: 3}); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	if got := s.Snapshot().Inventory[0].OnHand; got != 0 {
		t.Errorf("expected on-hand clamped to 0, got %d", got)
	}
}

func TestApplySale_NeverNegative(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 5, ReorderPoint: 1}},
		nil)

	ctx := context.Background()
	deltas := []int{3, 1, 4, 2, 9, 1}
	for i, qty := range deltas {
		sale := domain.Sale{ID: fmt.Sprintf("sale-%d", i), StoreID: "s1", SKUID: "k1", Qty: qty}
		if err := s.ApplySale(ctx, sale); err != nil {
			t.Fatalf("ApplySale failed: %v", err)
		}
		if got := s.Snapshot().Inventory[0].OnHand; got < 0 {
			t.Fatalf("on-hand went negative after sale %d: %d", i, got)
		}
	}
}

func TestApplySale_PrependsToLog(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10}},
		nil)

	ctx := context.Background()
	s.ApplySale(ctx, domain.Sale{ID: "older", StoreID: "s1", SKUID: "k1", Qty: 1})
	s.ApplySale(ctx, domain.Sale{ID: "newer", StoreID: "s1", SKUID: "k1", Qty: 1})

	sales := s.Snapshot().Sales
	if sales[0].ID != "newer" || sales[1].ID != "older" {
		t.Errorf("sales log is not most-recent-first: %+v", sales)
	}
}

func TestApplySale_UnknownPairStillLogged(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10}},
		nil)

	err := s.ApplySale(context.Background(), domain.Sale{ID: "sale-x", StoreID: "ghost", SKUID: "k1", Qty: 2})
	if err != nil {
		t.Fatalf("expected no error for unknown pair, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Inventory[0].OnHand != 10 {
		t.Errorf("stock must be untouched, got %d", snap.Inventory[0].OnHand)
	}
	if len(snap.Sales) != 1 {
		t.Errorf("sale should still be logged, got %d entries", len(snap.Sales))
	}
}

func TestApplySale_InvalidInput(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10}},
		nil)

	err := s.ApplySale(context.Background(), domain.Sale{ID: "bad", StoreID: "s1", SKUID: "k1", Qty: 0})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Inventory[0].OnHand != 10 || len(snap.Sales) != 0 {
		t.Error("invalid sale must not mutate state")
	}
}

func TestAdjustStock(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10}},
		nil)

	ctx := context.Background()
	if err := s.AdjustStock(ctx, "s1", "k1", -4); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if got := s.Snapshot().Inventory[0].OnHand; got != 6 {
		t.Errorf("expected 6, got %d", got)
	}

	// clamped, and no sales-log entry for manual corrections
	if err := s.AdjustStock(ctx, "s1", "k1", -100); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.Inventory[0].OnHand != 0 {
		t.Errorf("expected clamp to 0, got %d", snap.Inventory[0].OnHand)
	}
	if len(snap.Sales) != 0 {
		t.Error("manual adjustment must not touch the sales log")
	}

	// unknown pair is a no-op, not an error
	if err := s.AdjustStock(ctx, "ghost", "k1", 5); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestAddOrder_Prepends(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, nil)

	ctx := context.Background()
	s.AddOrder(ctx, domain.PurchaseOrder{ID: "older", Status: domain.OrderStatusCreated})
	s.AddOrder(ctx, domain.PurchaseOrder{ID: "newer", Status: domain.OrderStatusCreated})

	orders := s.Snapshot().Orders
	if len(orders) != 2 || orders[0].ID != "newer" {
		t.Errorf("orders are not most-recent-first: %+v", orders)
	}
}

func TestTransitionOrder_NoOpOnWrongStatus(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, []domain.PurchaseOrder{
		{ID: "o1", Status: domain.OrderStatusReceived},
	})

	if err := s.SendOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}

	if got := s.Snapshot().Orders[0].Status; got != domain.OrderStatusReceived {
		t.Errorf("received order must stay RECEIVED, got %s", got)
	}
}

func TestTransitionOrder_NoSkippingSteps(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, []domain.PurchaseOrder{
		{ID: "o1", StoreID: "s1", SKUID: "k1", Qty: 5, Status: domain.OrderStatusCreated},
	})

	// CREATED -> RECEIVED is not a legal move; nothing transitions and
	// no stock is credited
	if err := s.TransitionOrder(context.Background(), "o1", domain.OrderStatusReceived, s.restockLocked); err != nil {
		t.Fatalf("TransitionOrder failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Orders[0].Status != domain.OrderStatusCreated {
		t.Errorf("expected CREATED, got %s", snap.Orders[0].Status)
	}
	if len(snap.Inventory) != 0 {
		t.Errorf("skipped transition must not credit stock: %+v", snap.Inventory)
	}
}

func TestTransitionOrder_UnknownIDIsNoOp(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, nil)

	if err := s.SendOrder(context.Background(), "nope"); err != nil {
		t.Errorf("unknown order id must be a silent no-op, got %v", err)
	}
}

func TestSendThenReceive(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 3}},
		[]domain.PurchaseOrder{{ID: "o1", StoreID: "s1", SKUID: "k1", Qty: 20, Status: domain.OrderStatusCreated}})

	ctx := context.Background()
	if err := s.SendOrder(ctx, "o1"); err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}
	if got := s.Snapshot().Orders[0].Status; got != domain.OrderStatusSent {
		t.Fatalf("expected SENT, got %s", got)
	}

	if err := s.ReceiveOrder(ctx, "o1"); err != nil {
		t.Fatalf("ReceiveOrder failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.Orders[0].Status != domain.OrderStatusReceived {
		t.Errorf("expected RECEIVED, got %s", snap.Orders[0].Status)
	}
	if snap.Inventory[0].OnHand != 23 {
		t.Errorf("expected on-hand 23 after receipt, got %d", snap.Inventory[0].OnHand)
	}

	// receiving again does nothing
	if err := s.ReceiveOrder(ctx, "o1"); err != nil {
		t.Fatalf("repeat ReceiveOrder failed: %v", err)
	}
	if got := s.Snapshot().Inventory[0].OnHand; got != 23 {
		t.Errorf("repeat receive must not credit stock again, got %d", got)
	}
}

func TestReceiveOrder_CreatesMissingRecord(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, []domain.PurchaseOrder{
		{ID: "o1", StoreID: "s9", SKUID: "k9", Qty: 8, Status: domain.OrderStatusSent},
	})

	if err := s.ReceiveOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ReceiveOrder failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Inventory) != 1 {
		t.Fatalf("expected recovery record, got %d records", len(snap.Inventory))
	}
	rec := snap.Inventory[0]
	if rec.StoreID != "s9" || rec.SKUID != "k9" || rec.OnHand != 8 {
		t.Errorf("unexpected recovery record: %+v", rec)
	}
}

func TestReceiveAll_SamePairAccumulates(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 1}},
		[]domain.PurchaseOrder{
			{ID: "o1", StoreID: "s1", SKUID: "k1", Qty: 4, Status: domain.OrderStatusSent},
			{ID: "o2", StoreID: "s1", SKUID: "k1", Qty: 6, Status: domain.OrderStatusSent},
			{ID: "o3", StoreID: "s1", SKUID: "k1", Qty: 99, Status: domain.OrderStatusCreated},
		})

	moved, err := s.ReceiveAll(context.Background())
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if moved != 2 {
		t.Errorf("expected 2 transitions, got %d", moved)
	}

	snap := s.Snapshot()
	if got := snap.Inventory[0].OnHand; got != 11 {
		t.Errorf("expected on-hand 1+4+6=11, got %d", got)
	}
	for _, o := range snap.Orders {
		switch o.ID {
		case "o1", "o2":
			if o.Status != domain.OrderStatusReceived {
				t.Errorf("order %s should be RECEIVED, got %s", o.ID, o.Status)
			}
		case "o3":
			if o.Status != domain.OrderStatusCreated {
				t.Errorf("CREATED order must be untouched by receive-all, got %s", o.Status)
			}
		}
	}
}

func TestSendAll(t *testing.T) {
	s, _ := newLoadedStore(t, nil, nil, nil, []domain.PurchaseOrder{
		{ID: "o1", Status: domain.OrderStatusCreated},
		{ID: "o2", Status: domain.OrderStatusCreated},
		{ID: "o3", Status: domain.OrderStatusReceived},
	})

	moved, err := s.SendAll(context.Background())
	if err != nil {
		t.Fatalf("SendAll failed: %v", err)
	}
	if moved != 2 {
		t.Errorf("expected 2 transitions, got %d", moved)
	}
	for _, o := range s.Snapshot().Orders {
		if o.ID != "o3" && o.Status != domain.OrderStatusSent {
			t.Errorf("order %s should be SENT, got %s", o.ID, o.Status)
		}
	}
}

func TestClearOrders(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 7}},
		[]domain.PurchaseOrder{
			{ID: "o1", Status: domain.OrderStatusCreated},
			{ID: "o2", Status: domain.OrderStatusSent},
		})

	ctx := context.Background()
	s.ApplySale(ctx, domain.Sale{ID: "sale-1", StoreID: "s1", SKUID: "k1", Qty: 1})

	if err := s.ClearOrders(ctx); err != nil {
		t.Fatalf("ClearOrders failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Orders) != 0 {
		t.Errorf("expected empty order collection, got %d", len(snap.Orders))
	}
	if snap.Inventory[0].OnHand != 6 || len(snap.Sales) != 1 {
		t.Error("clear-all must not touch inventory or sales")
	}
}

func TestPersistenceFailure_KeepsInMemoryMutation(t *testing.T) {
	s, gw := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 10}},
		nil)

	gw.failSet = true
	err := s.ApplySale(context.Background(), domain.Sale{ID: "sale-1", StoreID: "s1", SKUID: "k1", Qty: 3})
	if err == nil {
		t.Fatal("expected a persistence error")
	}

	// the mutation is not rolled back
	snap := s.Snapshot()
	if snap.Inventory[0].OnHand != 7 {
		t.Errorf("in-memory state must keep the mutation, got %d", snap.Inventory[0].OnHand)
	}
	if len(snap.Sales) != 1 {
		t.Errorf("sale must stay logged, got %d", len(snap.Sales))
	}
}

func TestSnapshot_IsolatedFromLiveState(t *testing.T) {
	s, _ := newLoadedStore(t,
		[]domain.SKU{{ID: "k1"}},
		[]domain.Store{{ID: "s1"}},
		[]domain.InventoryRecord{{StoreID: "s1", SKUID: "k1", OnHand: 5, ReorderPoint: 10, Incoming: []domain.Receipt{{Qty: 2}}}},
		nil)

	snap := s.Snapshot()
	snap.Inventory[0].OnHand = 999
	snap.Inventory[0].Incoming[0].Qty = 999

	fresh := s.Snapshot()
	if fresh.Inventory[0].OnHand != 5 || fresh.Inventory[0].Incoming[0].Qty != 2 {
		t.Error("snapshot shares storage with the live collections")
	}

	if len(fresh.Alerts) != 1 {
		t.Fatalf("expected one low-stock alert, got %d", len(fresh.Alerts))
	}
	if fresh.Alerts[0].StoreID != "s1" || fresh.Alerts[0].SKUID != "k1" {
		t.Errorf("unexpected alert: %+v", fresh.Alerts[0])
	}
}
