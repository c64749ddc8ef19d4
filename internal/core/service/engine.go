package service

import (
	"context"
	"errors"
	"log"
	"time"

	"stockpilot/internal/core/domain"
	"stockpilot/internal/metrics"
)

const defaultQueueSize = 1024

// Engine wires the demand simulator to the state store. One goroutine
// consumes the sale channel, so each sale runs apply -> evaluate ->
// add-orders to completion before the next event: the evaluator always
// sees the snapshot after that sale's decrement and before any later
// one's.
type Engine struct {
	store *StateStore
	sim   *Simulator
	sales chan domain.Sale
}

func NewEngine(store *StateStore, queueSize int) *Engine {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Engine{
		store: store,
		sim:   &Simulator{},
		sales: make(chan domain.Sale, queueSize),
	}
}

// Submit queues one demand event for the sequential loop.
func (e *Engine) Submit(sale domain.Sale) {
	e.sales <- sale
}

// StartSimulator feeds the engine from the synthetic generator. The
// catalog is sampled once at start; it is immutable reference data.
func (e *Engine) StartSimulator(interval time.Duration) error {
	skus, stores := e.store.Catalog()
	if err := e.sim.Start(e.Submit, skus, stores, interval); err != nil {
		return err
	}
	metrics.SimulatorRunning.Set(1)
	return nil
}

func (e *Engine) StopSimulator() {
	e.sim.Stop()
	metrics.SimulatorRunning.Set(0)
}

func (e *Engine) SimulatorRunning() bool {
	return e.sim.Running()
}

// Run consumes demand events until ctx is cancelled. Persistence
// failures are logged and counted, never fatal: the in-memory state is
// authoritative for the session.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sale := <-e.sales:
			e.handleSale(ctx, sale)
		}
	}
}

func (e *Engine) handleSale(ctx context.Context, sale domain.Sale) {
	if err := e.store.ApplySale(ctx, sale); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			log.Printf("dropping sale %s: %v", sale.ID, err)
			return
		}
		log.Printf("warning: sale %s applied but not persisted: %v", sale.ID, err)
		metrics.PersistenceFailures.Inc()
	}
	metrics.SalesApplied.Inc()

	orders := EvaluateInventory(e.store.InventorySnapshot(), e.store.SKUMap(), time.Now())
	if len(orders) == 0 {
		return
	}
	if err := e.store.AddOrders(ctx, orders); err != nil {
		log.Printf("warning: %d orders added but not persisted: %v", len(orders), err)
		metrics.PersistenceFailures.Inc()
	}
	metrics.OrdersCreated.Add(float64(len(orders)))
}
