// internal/application/usecase/cart_engine.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
	stockdom "cartsync/internal/domain/stock"
)

var (
	ErrCartInvalidArgument = errors.New("cart_engine: invalid argument")
	ErrLineNotFound        = errors.New("cart_engine: line not found")

	// ErrStockUnavailable: the oracle timed out or failed while validating an
	// increase. The increase is rejected; the engine never assumes unlimited
	// stock.
	ErrStockUnavailable = errors.New("cart_engine: stock unavailable")

	// ErrOutOfStock: the stock ceiling resolved to 0.
	ErrOutOfStock = errors.New("cart_engine: out of stock")
)

// DefaultStockTimeout is the hard cap on a single oracle query issued from
// the mutation path.
const DefaultStockTimeout = 150 * time.Millisecond

// DefaultSnapshotTTL bounds how long a cached oracle reading keeps serving
// the clamp fast path. After the TTL the next increase consults the oracle
// again, so a product that read 0 can be re-added once the store restocks.
const DefaultSnapshotTTL = 2 * time.Second

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// EngineDeps wires the engine's collaborators.
type EngineDeps struct {
	Cache     *CartCache
	Oracle    stockdom.Oracle
	Store     cartdom.Store
	Scheduler *SyncScheduler
	Notifier  Notifier
	Clock     Clock

	// StockTimeout bounds oracle queries on the mutation path.
	// Zero means DefaultStockTimeout.
	StockTimeout time.Duration

	// SnapshotTTL bounds how long cached stock readings are trusted.
	// Zero means DefaultSnapshotTTL.
	SnapshotTTL time.Duration
}

// CartEngine applies user mutations optimistically, clamps quantities
// against the stock oracle, and schedules debounced writes to the cart
// store. Mutations are serialized: each one reads the current cart, computes
// the new cart, and replaces it atomically.
type CartEngine struct {
	mu sync.Mutex

	cache    *CartCache
	oracle   stockdom.Oracle
	store    cartdom.Store
	sched    *SyncScheduler
	notifier Notifier
	clock    Clock

	stockTimeout time.Duration
	snapTTL      time.Duration

	// snapshots caches best-effort oracle readings (fast path for clamping).
	// versions is a per-product monotonic counter; a stock reading obtained
	// outside the lock is applied only if the version it was read against
	// still matches.
	snapshots map[string]stockdom.Snapshot
	versions  map[string]uint64
}

func NewCartEngine(deps EngineDeps) *CartEngine {
	e := &CartEngine{
		cache:        deps.Cache,
		oracle:       deps.Oracle,
		store:        deps.Store,
		sched:        deps.Scheduler,
		notifier:     deps.Notifier,
		clock:        deps.Clock,
		stockTimeout: deps.StockTimeout,
		snapTTL:      deps.SnapshotTTL,
		snapshots:    map[string]stockdom.Snapshot{},
		versions:     map[string]uint64{},
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{}
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.stockTimeout <= 0 {
		e.stockTimeout = DefaultStockTimeout
	}
	if e.snapTTL <= 0 {
		e.snapTTL = DefaultSnapshotTTL
	}
	if e.sched != nil {
		e.sched.SetOnConfirmed(e.adoptConfirmed)
	}
	return e
}

// Lines returns the current cart snapshot (authoritative for rendering).
func (e *CartEngine) Lines() []cartdom.Line {
	return e.cache.Lines()
}

// Identity returns the active identity.
func (e *CartEngine) Identity() iddom.Identity {
	return e.cache.Identity()
}

// Subscribe exposes the cache's observer broadcast.
func (e *CartEngine) Subscribe() (<-chan []cartdom.Line, func()) {
	return e.cache.Subscribe()
}

// MutationResult is the optimistic outcome of one cart operation.
type MutationResult struct {
	Lines  []cartdom.Line
	Notice *Notice
}

// AddLineInput carries product metadata for inserting a new line.
type AddLineInput struct {
	ProductID   string
	DisplayName string
	UnitPrice   int
	ImageRef    string
}

// AddLine inserts a line with quantity 1, or increases an existing line by
// 1, clamped to the stock ceiling.
func (e *CartEngine) AddLine(ctx context.Context, in AddLineInput) (*MutationResult, error) {
	pid := strings.TrimSpace(in.ProductID)
	if pid == "" {
		return nil, ErrCartInvalidArgument
	}
	if in.UnitPrice < 0 {
		return nil, ErrCartInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	lines := e.cache.Lines()
	idx := cartdom.Find(lines, pid)

	cur := 0
	if idx >= 0 {
		cur = lines[idx].Qty
	}
	requested := cur + 1

	ceiling, err := e.ceilingFor(ctx, pid)
	if err != nil {
		log.Printf("[cart_engine] add rejected productId=%q: %v", pid, err)
		return nil, fmt.Errorf("%w: %s", ErrStockUnavailable, pid)
	}
	if ceiling == 0 {
		n := newNotice(NoticeOutOfStock, pid, 0, "out of stock", now)
		e.notifier.Notify(n)
		return &MutationResult{Lines: lines, Notice: &n}, ErrOutOfStock
	}

	applied := min(requested, ceiling)
	if applied == cur {
		// Already at the ceiling; nothing to grow.
		n := newNotice(NoticeAdjusted, pid, cur, "quantity already at available stock", now)
		e.notifier.Notify(n)
		return &MutationResult{Lines: lines, Notice: &n}, nil
	}

	if idx >= 0 {
		lines[idx].Qty = applied
		ks := ceiling
		lines[idx].KnownStock = &ks
	} else {
		l, lerr := cartdom.NewLine(pid, in.DisplayName, in.UnitPrice, in.ImageRef)
		if lerr != nil {
			return nil, ErrCartInvalidArgument
		}
		l.Qty = applied
		ks := ceiling
		l.KnownStock = &ks
		lines = append(lines, l)
	}

	e.versions[pid]++
	if err := e.commit(ctx, lines); err != nil {
		return nil, err
	}

	var n Notice
	if applied < requested {
		n = newNotice(NoticeAdjusted, pid, applied, "quantity adjusted to available stock", now)
	} else {
		n = newNotice(NoticeAdded, pid, applied, "added to cart", now)
	}
	e.notifier.Notify(n)
	return &MutationResult{Lines: e.cache.Lines(), Notice: &n}, nil
}

// SetQuantity sets the quantity of an existing line. qty <= 0 removes the
// line. Decreases apply immediately; increases are clamped against stock.
func (e *CartEngine) SetQuantity(ctx context.Context, productID string, qty int) (*MutationResult, error) {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return nil, ErrCartInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	lines := e.cache.Lines()
	idx := cartdom.Find(lines, pid)

	if qty <= 0 {
		if idx >= 0 {
			lines = cartdom.Remove(lines, idx)
			e.versions[pid]++
			if err := e.commit(ctx, lines); err != nil {
				return nil, err
			}
		}
		n := newNotice(NoticeRemoved, pid, 0, "removed from cart", now)
		e.notifier.Notify(n)
		return &MutationResult{Lines: e.cache.Lines(), Notice: &n}, nil
	}

	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, pid)
	}
	cur := lines[idx].Qty

	if qty <= cur {
		// Decreases never need stock validation and never block.
		if qty != cur {
			lines[idx].Qty = qty
			e.versions[pid]++
			if err := e.commit(ctx, lines); err != nil {
				return nil, err
			}
		}
		return &MutationResult{Lines: e.cache.Lines()}, nil
	}

	ceiling, err := e.ceilingFor(ctx, pid)
	if err != nil {
		log.Printf("[cart_engine] increase rejected productId=%q: %v", pid, err)
		return nil, fmt.Errorf("%w: %s", ErrStockUnavailable, pid)
	}
	if ceiling == 0 {
		// Keep the prior quantity; surface the condition instead of writing
		// a zero-quantity line.
		ks := 0
		lines[idx].KnownStock = &ks
		if _, cerr := e.cache.Replace(ctx, lines); cerr != nil {
			return nil, cerr
		}
		n := newNotice(NoticeOutOfStock, pid, cur, "out of stock", now)
		e.notifier.Notify(n)
		return &MutationResult{Lines: e.cache.Lines(), Notice: &n}, ErrOutOfStock
	}

	applied := min(qty, ceiling)
	var notice *Notice
	if applied != cur {
		lines[idx].Qty = applied
		ks := ceiling
		lines[idx].KnownStock = &ks
		e.versions[pid]++
		if err := e.commit(ctx, lines); err != nil {
			return nil, err
		}
	}
	if applied < qty {
		n := newNotice(NoticeAdjusted, pid, applied, "quantity adjusted to available stock", now)
		e.notifier.Notify(n)
		notice = &n
	}
	return &MutationResult{Lines: e.cache.Lines(), Notice: notice}, nil
}

// RemoveLine removes productID unconditionally.
func (e *CartEngine) RemoveLine(ctx context.Context, productID string) (*MutationResult, error) {
	return e.SetQuantity(ctx, productID, 0)
}

// Clear empties the cart unconditionally.
func (e *CartEngine) Clear(ctx context.Context) (*MutationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for _, l := range e.cache.Lines() {
		e.versions[l.ProductID]++
	}
	if err := e.commit(ctx, nil); err != nil {
		return nil, err
	}
	n := newNotice(NoticeCleared, "", 0, "cart cleared", now)
	e.notifier.Notify(n)
	return &MutationResult{Lines: e.cache.Lines(), Notice: &n}, nil
}

/// Rehydrate loads the cart for id on process start: durable mirror first,
// then (for authenticated identities) the remote store as fallback.
func (e *CartEngine) Rehydrate(ctx context.Context, id iddom.Identity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cache.mirror != nil {
		lines, found, err := e.cache.mirror.Load(ctx, id.Key())
		if err != nil {
			log.Printf("[cart_engine] WARN: mirror load failed identity=%s: %v", id.Key(), err)
		} else if found {
			return e.cache.SwitchIdentity(ctx, id, lines)
		}
	}

	var lines []cartdom.Line
	if !id.IsGuest() && e.store != nil {
		remote, err := e.store.Get(ctx, id)
		if err != nil {
			// Degrade to an empty cart; local state rebuilds from mutations.
			log.Printf("[cart_engine] WARN: store get failed identity=%s: %v", id.Key(), err)
		} else {
			lines = remote
		}
	}
	return e.cache.SwitchIdentity(ctx, id, lines)
}

// Flush forces the pending snapshot out (process about to stop being
// observable).
func (e *CartEngine) Flush(ctx context.Context) {
	if e.sched != nil {
		e.sched.Flush(ctx)
	}
}

// commit replaces the cache and schedules the debounced remote write.
// Callers hold e.mu.
func (e *CartEngine) commit(ctx context.Context, lines []cartdom.Line) error {
	changed, err := e.cache.Replace(ctx, lines)
	if err != nil {
		return err
	}
	if changed && e.sched != nil {
		e.sched.Schedule(e.cache.Identity(), e.cache.Lines())
	}
	return nil
}

// ceilingFor resolves the stock ceiling for productID: cached snapshot fast
// path while the reading is fresh, otherwise a bounded oracle query. Callers
// hold e.mu, so the bound also caps how long one mutation can stall the
// write path.
func (e *CartEngine) ceilingFor(ctx context.Context, productID string) (int, error) {
	if snap, ok := e.snapshots[productID]; ok {
		if e.clock.Now().Sub(snap.FetchedAt) < e.snapTTL {
			return snap.Quantity, nil
		}
		delete(e.snapshots, productID)
	}

	qctx, cancel := context.WithTimeout(ctx, e.stockTimeout)
	defer cancel()

	qty, err := e.oracle.Quantity(qctx, productID)
	if err != nil {
		if errors.Is(err, stockdom.ErrNotFound) {
			// Unknown product: conservatively no stock.
			e.rememberStock(productID, 0)
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", stockdom.ErrUnavailable, err)
	}
	if qty < 0 {
		qty = 0
	}
	e.rememberStock(productID, qty)
	return qty, nil
}

// rememberStock caches an oracle reading. Callers hold e.mu.
func (e *CartEngine) rememberStock(productID string, qty int) {
	e.snapshots[productID] = stockdom.Snapshot{Quantity: qty, FetchedAt: e.clock.Now()}
}

// adoptConfirmed reconciles the canonical cart returned by the store with
// local state: the server version is adopted only if the local cart has not
// changed since the write was sent (compare-and-swap semantics), so newer
// local edits are never clobbered by a stale round trip.
func (e *CartEngine) adoptConfirmed(ctx context.Context, id iddom.Identity, sent, canonical []cartdom.Line) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cache.Identity() != id {
		return
	}
	current := e.cache.Lines()
	if !cartdom.Equal(current, sent) {
		// Local moved on during the round trip; the next write wins.
		return
	}
	if cartdom.Equal(canonical, sent) {
		return
	}
	log.Printf("[cart_engine] adopting server-adjusted cart identity=%s lines=%d", id.Key(), len(canonical))
	if _, err := e.cache.Replace(ctx, canonical); err != nil {
		log.Printf("[cart_engine] WARN: adopt failed identity=%s: %v", id.Key(), err)
	}
}
