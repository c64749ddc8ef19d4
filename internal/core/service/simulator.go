package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/core/domain"
)

// DefaultSaleInterval is the tick period used when a caller does not
// pick one.
const DefaultSaleInterval = 1500 * time.Millisecond

const saleChannel = "in-store"

// Simulator emits synthetic in-store sales on a fixed cadence. At most
// one run is active per Simulator: Start on a running one first stops
// it, so two uncoordinated tickers can never double-decrement stock.
type Simulator struct {
	mu   sync.Mutex
	stop chan struct{} // nil when idle
}

// Start begins firing sales at emit every interval. Each tick picks one
// SKU and one store uniformly at random; quantity is 1 with probability
// 0.8, otherwise uniform over 2..3. Returns ErrInvalidInput when either
// catalog slice is empty.
func (s *Simulator) Start(emit func(domain.Sale), skus []domain.SKU, stores []domain.Store, interval time.Duration) error {
	if len(skus) == 0 || len(stores) == 0 {
		return fmt.Errorf("%w: simulator needs at least one sku and one store", ErrInvalidInput)
	}
	if interval <= 0 {
		interval = DefaultSaleInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				emit(randomSale(skus, stores))
			}
		}
	}()
	return nil
}

// Stop halts future ticks. It never interrupts an in-flight tick and is
// harmless on an already-stopped simulator.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a run is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Simulator) stopLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func randomSale(skus []domain.SKU, stores []domain.Store) domain.Sale {
	qty := 1
	if rand.Float64() >= 0.8 {
		qty = 2 + rand.IntN(2)
	}
	return domain.Sale{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		StoreID:   stores[rand.IntN(len(stores))].ID,
		SKUID:     skus[rand.IntN(len(skus))].ID,
		Qty:       qty,
		Channel:   saleChannel,
	}
}
