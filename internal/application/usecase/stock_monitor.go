// internal/application/usecase/stock_monitor.go
package usecase

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	cartdom "cartsync/internal/domain/cart"
)

const (
	// DefaultRevalidateInterval is the low-frequency timer for the passive
	// stock consistency check.
	DefaultRevalidateInterval = 400 * time.Millisecond

	// DefaultRevalidateSample bounds how many lines one pass re-queries.
	DefaultRevalidateSample = 4
)

// StockMonitor periodically re-validates a bounded subset of cart lines
// against the oracle and clamps held quantities down when live stock
// dropped. It never increases a quantity; only the explicit user-driven
// increase path can grow one.
type StockMonitor struct {
	engine   *CartEngine
	interval time.Duration
	sample   int

	busy atomic.Bool
}

func NewStockMonitor(engine *CartEngine, interval time.Duration, sample int) *StockMonitor {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	if sample <= 0 {
		sample = DefaultRevalidateSample
	}
	return &StockMonitor{engine: engine, interval: interval, sample: sample}
}

// Start runs the check loop until ctx is cancelled.
func (m *StockMonitor) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.tick(ctx)
			}
		}
	}()
}

// tick runs at most one pass at a time; overlapping ticks are skipped.
func (m *StockMonitor) tick(ctx context.Context) {
	if !m.busy.CompareAndSwap(false, true) {
		return
	}
	defer m.busy.Store(false)
	m.engine.revalidateStock(ctx, m.sample)
}

// revalTarget is one sampled line plus the version the stock query was
// issued against.
type revalTarget struct {
	productID string
	version   uint64
}

type revalResult struct {
	productID string
	version   uint64
	qty       int
	ok        bool
}

// revalidateStock samples up to sample lines, queries the oracle
// concurrently, and applies clamp-downs for results whose product version
// has not moved since the query was issued. Late or superseded readings are
// discarded.
func (e *CartEngine) revalidateStock(ctx context.Context, sample int) {
	e.mu.Lock()
	lines := e.cache.Lines()
	if len(lines) == 0 {
		e.mu.Unlock()
		return
	}
	if sample > len(lines) {
		sample = len(lines)
	}
	targets := make([]revalTarget, 0, sample)
	for _, l := range lines[:sample] {
		targets = append(targets, revalTarget{productID: l.ProductID, version: e.versions[l.ProductID]})
	}
	e.mu.Unlock()

	results := make([]revalResult, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t revalTarget) {
			defer wg.Done()
			qctx, cancel := context.WithTimeout(ctx, e.stockTimeout)
			defer cancel()
			qty, err := e.oracle.Quantity(qctx, t.productID)
			if err != nil {
				// Passive check: failures are logged, never surfaced.
				log.Printf("[stock_monitor] query failed productId=%q: %v", t.productID, err)
				results[i] = revalResult{productID: t.productID, version: t.version}
				return
			}
			if qty < 0 {
				qty = 0
			}
			results[i] = revalResult{productID: t.productID, version: t.version, qty: qty, ok: true}
		}(i, t)
	}
	wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.cache.Lines()
	changed := false
	for _, r := range results {
		if !r.ok {
			continue
		}
		if e.versions[r.productID] != r.version {
			// Quantity moved while the query was in flight; discard.
			continue
		}
		e.rememberStock(r.productID, r.qty)

		idx := cartdom.Find(current, r.productID)
		if idx < 0 {
			continue
		}
		held := current[idx].Qty
		ks := r.qty
		if current[idx].KnownStock == nil || *current[idx].KnownStock != ks {
			current[idx].KnownStock = &ks
			changed = true
		}
		if r.qty > 0 && r.qty < held {
			// Clamp down, floor 1 is implied by qty > 0. A zero reading
			// leaves the line for the user to notice via the indicator.
			log.Printf("[stock_monitor] clamping productId=%q held=%d live=%d", r.productID, held, r.qty)
			current[idx].Qty = r.qty
			e.versions[r.productID]++
			changed = true
		}
	}

	if changed {
		if err := e.commit(ctx, current); err != nil {
			log.Printf("[stock_monitor] WARN: commit failed: %v", err)
		}
	}
}
