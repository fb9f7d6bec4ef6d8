// internal/application/usecase/cart_merge.go
package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

const (
	// mergeOverallTimeout bounds the whole stock-ceiling fan-out on login.
	mergeOverallTimeout = 2 * time.Second

	mergePerProductTimeout = 500 * time.Millisecond
)

// MergeResult is the outcome of a guest-to-user cart merge.
type MergeResult struct {
	Lines   []cartdom.Line
	Notices []Notice
}

// Login transitions the engine to the authenticated identity, merging the
// guest cart (if any) into the user's remote cart. Runs once per login
// event. A failed remote fetch degrades to guest-only quantities; login is
// never blocked.
func (e *CartEngine) Login(ctx context.Context, userID string) (*MergeResult, error) {
	uid := strings.TrimSpace(userID)
	userIdent, err := iddom.User(uid)
	if err != nil {
		return nil, ErrCartInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	active := e.cache.Identity()

	if active == userIdent {
		return &MergeResult{Lines: e.cache.Lines()}, nil
	}

	var guestLines []cartdom.Line
	if active.IsGuest() {
		guestLines = e.cache.Lines()
	}

	var userLines []cartdom.Line
	if e.store != nil {
		remote, gerr := e.store.Get(ctx, userIdent)
		if gerr != nil {
			// MergeFailure: proceed with guest-only quantities.
			log.Printf("[cart_merge] WARN: user cart fetch failed identity=%s: %v (treating as empty)", userIdent.Key(), gerr)
		} else {
			userLines = cartdom.Normalize(remote)
		}
	}

	merged, notices := e.mergeAgainstStock(ctx, guestLines, userLines, now)

	if err := e.cache.SwitchIdentity(ctx, userIdent, merged); err != nil {
		return nil, err
	}
	for _, l := range merged {
		e.versions[l.ProductID]++
	}
	if e.sched != nil {
		e.sched.Schedule(userIdent, e.cache.Lines())
	}

	// The consumed guest cart must not resurface on a later logout.
	if e.cache.mirror != nil {
		if derr := e.cache.mirror.Delete(ctx, iddom.Guest().Key()); derr != nil {
			log.Printf("[cart_merge] WARN: guest mirror delete failed: %v", derr)
		}
	}

	for _, n := range notices {
		e.notifier.Notify(n)
	}
	log.Printf("[cart_merge] merged identity=%s guestLines=%d userLines=%d mergedLines=%d notices=%d",
		userIdent.Key(), len(guestLines), len(userLines), len(merged), len(notices))

	return &MergeResult{Lines: e.cache.Lines(), Notices: notices}, nil
}

// Logout switches back to the guest identity. The guest mirror was consumed
// at login, so this starts from an empty guest cart (or whatever the mirror
// holds from later guest activity).
func (e *CartEngine) Logout(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	guest := iddom.Guest()
	if e.cache.mirror != nil {
		lines, found, err := e.cache.mirror.Load(ctx, guest.Key())
		if err == nil && found {
			return e.cache.SwitchIdentity(ctx, guest, lines)
		}
		if err != nil {
			log.Printf("[cart_merge] WARN: guest mirror load failed: %v", err)
		}
	}
	return e.cache.SwitchIdentity(ctx, guest, nil)
}

// mergeAgainstStock computes the merged cart: per product,
// min(guest+user, ceiling), dropping lines whose ceiling is 0. Ceiling
// queries run concurrently under an overall timeout; a per-product failure
// falls back to ceiling 0 as last resort (logged). Callers hold e.mu.
func (e *CartEngine) mergeAgainstStock(ctx context.Context, guestLines, userLines []cartdom.Line, now time.Time) ([]cartdom.Line, []Notice) {
	type side struct {
		guest cartdom.Line
		user  cartdom.Line
		inG   bool
		inU   bool
	}

	byID := map[string]*side{}
	order := []string{}
	for _, l := range guestLines {
		byID[l.ProductID] = &side{guest: l, inG: true}
		order = append(order, l.ProductID)
	}
	for _, l := range userLines {
		if s, ok := byID[l.ProductID]; ok {
			s.user = l
			s.inU = true
			continue
		}
		byID[l.ProductID] = &side{user: l, inU: true}
		order = append(order, l.ProductID)
	}
	sort.Strings(order)

	octx, cancel := context.WithTimeout(ctx, mergeOverallTimeout)
	defer cancel()

	ceilings := make(map[string]int, len(order))
	var cmu sync.Mutex
	var wg sync.WaitGroup
	for _, pid := range order {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			qctx, qcancel := context.WithTimeout(octx, mergePerProductTimeout)
			defer qcancel()
			qty, err := e.oracle.Quantity(qctx, pid)
			if err != nil || qty < 0 {
				if err != nil {
					log.Printf("[cart_merge] WARN: ceiling query failed productId=%q: %v (assuming 0)", pid, err)
				}
				qty = 0
			}
			cmu.Lock()
			ceilings[pid] = qty
			cmu.Unlock()
		}(pid)
	}
	wg.Wait()

	merged := make([]cartdom.Line, 0, len(order))
	notices := []Notice{}
	for _, pid := range order {
		s := byID[pid]
		ceiling := ceilings[pid]
		e.rememberStock(pid, ceiling)

		want := 0
		if s.inG {
			want += s.guest.Qty
		}
		if s.inU {
			want += s.user.Qty
		}
		if want <= 0 {
			continue
		}

		if ceiling == 0 {
			notices = append(notices, newNotice(NoticeOutOfStock, pid, 0, "out of stock, removed from cart", now))
			continue
		}

		line := s.guest
		if !s.inG {
			line = s.user
		} else if s.inU {
			// Prefer the richer metadata when both sides carry the product.
			if strings.TrimSpace(line.DisplayName) == "" {
				line.DisplayName = s.user.DisplayName
			}
			if line.ImageRef == "" {
				line.ImageRef = s.user.ImageRef
			}
		}

		applied := min(want, ceiling)
		line.Qty = applied
		ks := ceiling
		line.KnownStock = &ks
		merged = append(merged, line)

		if applied < want {
			notices = append(notices, newNotice(NoticeAdjusted, pid, applied, "quantity adjusted to available stock", now))
		}
	}

	return merged, notices
}
