// internal/application/usecase/sync_scheduler.go
package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

const (
	// DefaultDebounce is the quiet period before the pending snapshot is
	// written out. Rapid mutations within one window coalesce into a single
	// remote write.
	DefaultDebounce = 75 * time.Millisecond

	defaultWriteTimeout = 5 * time.Second
)

// FlushTransport is the fire-and-forget send used when the process is about
// to stop being observable. It must not require a response.
type FlushTransport interface {
	Send(identityKey string, lines []cartdom.Line)
}

// SyncScheduler coalesces rapid mutations into one delayed bulk write to the
// cart store. It owns the single PendingWrite: each Schedule overwrites the
// previously pending snapshot, only the latest matters.
type SyncScheduler struct {
	mu sync.Mutex

	store   cartdom.Store
	flusher FlushTransport

	delay        time.Duration
	writeTimeout time.Duration

	timer      *time.Timer
	pending    []cartdom.Line
	pendingID  iddom.Identity
	hasPending bool

	onConfirmed func(ctx context.Context, id iddom.Identity, sent, canonical []cartdom.Line)

	inflight sync.WaitGroup
}

func NewSyncScheduler(store cartdom.Store, flusher FlushTransport, delay time.Duration) *SyncScheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &SyncScheduler{
		store:        store,
		flusher:      flusher,
		delay:        delay,
		writeTimeout: defaultWriteTimeout,
	}
}

// SetOnConfirmed installs the reconciliation callback invoked with the sent
// snapshot and the canonical response after each successful write.
func (s *SyncScheduler) SetOnConfirmed(fn func(ctx context.Context, id iddom.Identity, sent, canonical []cartdom.Line)) {
	s.mu.Lock()
	s.onConfirmed = fn
	s.mu.Unlock()
}

// Schedule replaces the pending snapshot and (re)starts the delay timer.
func (s *SyncScheduler) Schedule(id iddom.Identity, lines []cartdom.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = cartdom.Clone(lines)
	s.pendingID = id
	s.hasPending = true

	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
		return
	}
	s.timer.Reset(s.delay)
}

func (s *SyncScheduler) fire() {
	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		return
	}
	snapshot := s.pending
	id := s.pendingID
	s.pending = nil
	s.hasPending = false
	confirmed := s.onConfirmed
	s.mu.Unlock()

	s.inflight.Add(1)
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	canonical, err := s.store.Put(ctx, id, snapshot)
	if err != nil {
		// Keep local state as-is; the durable mirror already holds it.
		// Retry happens on the next scheduled write, not immediately, to
		// avoid write storms.
		log.Printf("[sync_scheduler] WARN: remote write failed identity=%s lines=%d: %v", id.Key(), len(snapshot), err)
		s.mu.Lock()
		if !s.hasPending {
			s.pending = snapshot
			s.pendingID = id
			s.hasPending = true
		}
		s.mu.Unlock()
		return
	}

	if confirmed != nil {
		confirmed(ctx, id, snapshot, cartdom.Normalize(canonical))
	}
}

// Flush cancels the debounce timer and sends any still-pending snapshot via
// the fire-and-forget transport. Safe to call multiple times; the timer and
// Flush are mutually exclusive on the pending snapshot.
func (s *SyncScheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.hasPending {
		s.mu.Unlock()
		return
	}
	snapshot := s.pending
	id := s.pendingID
	s.pending = nil
	s.hasPending = false
	s.mu.Unlock()

	if s.flusher != nil {
		log.Printf("[sync_scheduler] forced flush identity=%s lines=%d", id.Key(), len(snapshot))
		s.flusher.Send(id.Key(), snapshot)
		return
	}

	// No beacon configured: best-effort direct write, result ignored.
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if _, err := s.store.Put(wctx, id, snapshot); err != nil {
		log.Printf("[sync_scheduler] WARN: forced flush failed identity=%s: %v", id.Key(), err)
	}
}

// waitIdle blocks until no write is in flight (test helper).
func (s *SyncScheduler) waitIdle() {
	s.inflight.Wait()
}
