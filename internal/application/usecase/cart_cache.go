// internal/application/usecase/cart_cache.go
package usecase

import (
	"context"
	"log"
	"sync"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

// subscriberBuffer bounds how far a slow observer may lag before snapshots
// are dropped for it. Broadcast never blocks the mutation path.
const subscriberBuffer = 8

// CartCache is the in-memory cart for the active identity.
// Single writer (the engine serializes mutations), many readers.
// Every replacement persists the durable mirror for the active identity and
// broadcasts an immutable copy to subscribers, unless the new content equals
// the current content (in which case the whole call is a no-op).
type CartCache struct {
	mu    sync.RWMutex
	id    iddom.Identity
	lines []cartdom.Line

	mirror cartdom.Mirror

	subMu   sync.Mutex
	subs    map[int]chan []cartdom.Line
	nextSub int
}

func NewCartCache(mirror cartdom.Mirror) *CartCache {
	return &CartCache{
		mirror: mirror,
		subs:   map[int]chan []cartdom.Line{},
	}
}

// Identity returns the currently active identity.
func (c *CartCache) Identity() iddom.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Lines returns an immutable copy of the current cart.
func (c *CartCache) Lines() []cartdom.Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cartdom.Clone(c.lines)
}

// Replace swaps the full line set (never a partial patch), mirrors it
// durably, and broadcasts. Returns whether content actually changed.
func (c *CartCache) Replace(ctx context.Context, lines []cartdom.Line) (bool, error) {
	next := cartdom.Normalize(lines)

	c.mu.Lock()
	if cartdom.Equal(c.lines, next) {
		c.mu.Unlock()
		return false, nil
	}
	c.lines = next
	id := c.id
	snapshot := cartdom.Clone(next)
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Save(ctx, id.Key(), snapshot); err != nil {
			// Mirror failure does not roll back the optimistic state;
			// the remote sync path still covers durability.
			log.Printf("[cart_cache] WARN: mirror save failed identity=%s: %v", id.Key(), err)
		}
	}

	c.broadcast(snapshot)
	return true, nil
}

// SwitchIdentity replaces the active identity and cart content together
// (login / logout transitions). Mirrors and broadcasts like Replace.
func (c *CartCache) SwitchIdentity(ctx context.Context, id iddom.Identity, lines []cartdom.Line) error {
	next := cartdom.Normalize(lines)

	c.mu.Lock()
	c.id = id
	c.lines = next
	snapshot := cartdom.Clone(next)
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Save(ctx, id.Key(), snapshot); err != nil {
			log.Printf("[cart_cache] WARN: mirror save failed identity=%s: %v", id.Key(), err)
		}
	}

	c.broadcast(snapshot)
	return nil
}

// Subscribe registers an observer. The returned channel receives immutable
// cart snapshots after every content-changing replacement; cancel
// unregisters and closes it.
func (c *CartCache) Subscribe() (<-chan []cartdom.Line, func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan []cartdom.Line, subscriberBuffer)
	c.subs[id] = ch
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		if cur, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(cur)
		}
		c.subMu.Unlock()
	}
	return ch, cancel
}

func (c *CartCache) broadcast(snapshot []cartdom.Line) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- cartdom.Clone(snapshot):
		default:
			// slow consumer: drop, never block
		}
	}
}
