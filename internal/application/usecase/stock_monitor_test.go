// internal/application/usecase/stock_monitor_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

func seedCart(t *testing.T, f *engineFixture, lines ...cartdom.Line) {
	t.Helper()
	require.NoError(t, f.engine.cache.SwitchIdentity(context.Background(), iddom.Guest(), lines))
}

func TestRevalidateClampsDownWhenStockDropped(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"p1": 3})
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 5})

	f.engine.revalidateStock(context.Background(), DefaultRevalidateSample)

	lines := f.engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Qty)
	require.NotNil(t, lines[0].KnownStock)
	assert.Equal(t, 3, *lines[0].KnownStock)
}

func TestRevalidateNeverIncreasesQuantity(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"p1": 50})
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 2})

	f.engine.revalidateStock(context.Background(), DefaultRevalidateSample)

	lines := f.engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Qty)
	require.NotNil(t, lines[0].KnownStock)
	assert.Equal(t, 50, *lines[0].KnownStock)
}

func TestRevalidateZeroStockKeepsLineWithIndicator(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"p1": 0})
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 2})

	f.engine.revalidateStock(context.Background(), DefaultRevalidateSample)

	lines := f.engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Qty, "zero reading never silently deletes the line")
	require.NotNil(t, lines[0].KnownStock)
	assert.Equal(t, 0, *lines[0].KnownStock)
}

func TestRevalidateSampleBoundsQueries(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1})
	seedCart(t, f,
		cartdom.Line{ProductID: "a", UnitPrice: 100, Qty: 1},
		cartdom.Line{ProductID: "b", UnitPrice: 100, Qty: 1},
		cartdom.Line{ProductID: "c", UnitPrice: 100, Qty: 1},
		cartdom.Line{ProductID: "d", UnitPrice: 100, Qty: 1},
	)

	f.engine.revalidateStock(context.Background(), 2)
	assert.Equal(t, 2, f.oracle.callCount())
}

func TestRevalidateQueryFailureLeavesCartUntouched(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.oracle.setErr(errors.New("backend down"))
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 4})

	f.engine.revalidateStock(context.Background(), DefaultRevalidateSample)

	lines := f.engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Qty)
	assert.Nil(t, lines[0].KnownStock)
}

func TestRevalidateDiscardsReadingWhenVersionMoved(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"p1": 1})
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 5})

	// The product version moves while the query is in flight; the stale
	// reading must be discarded instead of clamping.
	f.oracle.onQuery = func(productID string) {
		f.engine.mu.Lock()
		f.engine.versions[productID]++
		f.engine.mu.Unlock()
	}

	f.engine.revalidateStock(context.Background(), DefaultRevalidateSample)

	lines := f.engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Qty)
}

func TestMonitorTicksUntilCancelled(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"p1": 1})
	seedCart(t, f, cartdom.Line{ProductID: "p1", UnitPrice: 100, Qty: 5})

	m := NewStockMonitor(f.engine, 10*time.Millisecond, DefaultRevalidateSample)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	require.Eventually(t, func() bool {
		lines := f.engine.Lines()
		return len(lines) == 1 && lines[0].Qty == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	calls := f.oracle.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, f.oracle.callCount(), calls+1, "loop stops after cancel")
}
