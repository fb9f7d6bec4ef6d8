// internal/application/usecase/sync_scheduler_test.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

func schedLines(qty int) []cartdom.Line {
	return []cartdom.Line{{ProductID: "p1", DisplayName: "Mug", UnitPrice: 100, Qty: qty}}
}

func TestScheduleCoalescesRapidMutations(t *testing.T) {
	store := newFakeStore()
	s := NewSyncScheduler(store, nil, 30*time.Millisecond)

	// Three mutations inside one debounce window.
	s.Schedule(iddom.Guest(), schedLines(1))
	s.Schedule(iddom.Guest(), schedLines(2))
	s.Schedule(iddom.Guest(), schedLines(3))

	time.Sleep(80 * time.Millisecond)
	s.waitIdle()

	assert.Equal(t, 1, store.putCount(), "one bulk write, not three")
	got := store.lines(iddom.Guest().Key())
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Qty, "latest snapshot wins")
}

func TestScheduleSeparateWindowsWriteSeparately(t *testing.T) {
	store := newFakeStore()
	s := NewSyncScheduler(store, nil, 20*time.Millisecond)

	s.Schedule(iddom.Guest(), schedLines(1))
	time.Sleep(60 * time.Millisecond)
	s.waitIdle()

	s.Schedule(iddom.Guest(), schedLines(2))
	time.Sleep(60 * time.Millisecond)
	s.waitIdle()

	assert.Equal(t, 2, store.putCount())
}

func TestScheduleSnapshotIsolatedFromCaller(t *testing.T) {
	store := newFakeStore()
	s := NewSyncScheduler(store, nil, 20*time.Millisecond)

	lines := schedLines(1)
	s.Schedule(iddom.Guest(), lines)
	lines[0].Qty = 99 // caller keeps mutating its slice

	time.Sleep(60 * time.Millisecond)
	s.waitIdle()

	got := store.lines(iddom.Guest().Key())
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Qty)
}

func TestFailedWriteRetriesOnNextSchedule(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("remote down")
	s := NewSyncScheduler(store, nil, 20*time.Millisecond)

	s.Schedule(iddom.Guest(), schedLines(1))
	time.Sleep(60 * time.Millisecond)
	s.waitIdle()
	require.Equal(t, 1, store.putCount())

	// Remote recovers; the next schedule carries the state forward.
	store.mu.Lock()
	store.putErr = nil
	store.mu.Unlock()

	s.Schedule(iddom.Guest(), schedLines(2))
	time.Sleep(60 * time.Millisecond)
	s.waitIdle()

	assert.Equal(t, 2, store.putCount())
	got := store.lines(iddom.Guest().Key())
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Qty)
}

func TestOnConfirmedReceivesSentAndCanonical(t *testing.T) {
	store := newFakeStore()
	store.canonical = func(lines []cartdom.Line) []cartdom.Line {
		out := cartdom.Clone(lines)
		for i := range out {
			out[i].Qty = 1
		}
		return out
	}
	s := NewSyncScheduler(store, nil, 20*time.Millisecond)

	var mu sync.Mutex
	var gotSent, gotCanonical []cartdom.Line
	s.SetOnConfirmed(func(ctx context.Context, id iddom.Identity, sent, canonical []cartdom.Line) {
		mu.Lock()
		defer mu.Unlock()
		gotSent = sent
		gotCanonical = canonical
	})

	s.Schedule(iddom.Guest(), schedLines(4))
	time.Sleep(60 * time.Millisecond)
	s.waitIdle()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, gotSent, 1)
	assert.Equal(t, 4, gotSent[0].Qty)
	require.Len(t, gotCanonical, 1)
	assert.Equal(t, 1, gotCanonical[0].Qty)
}

func TestFlushSendsPendingViaBeacon(t *testing.T) {
	store := newFakeStore()
	flusher := &fakeFlusher{}
	s := NewSyncScheduler(store, flusher, 200*time.Millisecond)

	s.Schedule(iddom.Guest(), schedLines(2))
	s.Flush(context.Background())

	require.Equal(t, 1, flusher.sendCount())
	assert.Equal(t, iddom.Guest().Key(), flusher.keys[0])
	require.Len(t, flusher.sends[0], 1)
	assert.Equal(t, 2, flusher.sends[0][0].Qty)

	// The debounce timer was cancelled; no duplicate store write follows.
	time.Sleep(250 * time.Millisecond)
	s.waitIdle()
	assert.Equal(t, 0, store.putCount())
}

func TestFlushWithoutBeaconWritesStoreDirectly(t *testing.T) {
	store := newFakeStore()
	s := NewSyncScheduler(store, nil, 200*time.Millisecond)

	s.Schedule(iddom.Guest(), schedLines(3))
	s.Flush(context.Background())

	assert.Equal(t, 1, store.putCount())
	got := store.lines(iddom.Guest().Key())
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Qty)
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	store := newFakeStore()
	flusher := &fakeFlusher{}
	s := NewSyncScheduler(store, flusher, 20*time.Millisecond)

	s.Flush(context.Background())
	assert.Equal(t, 0, flusher.sendCount())
	assert.Equal(t, 0, store.putCount())
}
