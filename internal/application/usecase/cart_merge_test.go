// internal/application/usecase/cart_merge_test.go
package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

func TestLoginMergesGuestAndUserCarts(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 4, "B": 5})
	ctx := context.Background()

	user, err := iddom.User("u1")
	require.NoError(t, err)
	f.store.seed(user.Key(), []cartdom.Line{
		{ProductID: "A", DisplayName: "Shirt", UnitPrice: 3000, Qty: 2},
		{ProductID: "B", DisplayName: "Cap", UnitPrice: 2000, Qty: 1},
	})
	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "A", DisplayName: "Shirt", UnitPrice: 3000, Qty: 3},
	}))

	res, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)

	// A: guest 3 + user 2 = 5, clamped to stock 4. B: user 1 carried over.
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "A", res.Lines[0].ProductID)
	assert.Equal(t, 4, res.Lines[0].Qty)
	assert.Equal(t, "B", res.Lines[1].ProductID)
	assert.Equal(t, 1, res.Lines[1].Qty)

	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeAdjusted, res.Notices[0].Kind)
	assert.Equal(t, "A", res.Notices[0].ProductID)
	assert.Equal(t, 4, res.Notices[0].Qty)

	assert.Equal(t, user, f.engine.Identity())
}

func TestLoginDropsOutOfStockLines(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"C": 0})
	ctx := context.Background()

	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "C", UnitPrice: 500, Qty: 2},
	}))

	res, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeOutOfStock, res.Notices[0].Kind)
	assert.Equal(t, "C", res.Notices[0].ProductID)
}

func TestLoginClampsUserOnlyLines(t *testing.T) {
	// A stale server cart can hold more than current stock; login clamps it.
	f := newEngineFixture(t, map[string]int{"D": 2})
	ctx := context.Background()

	user, err := iddom.User("u1")
	require.NoError(t, err)
	f.store.seed(user.Key(), []cartdom.Line{{ProductID: "D", UnitPrice: 800, Qty: 6}})

	res, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 2, res.Lines[0].Qty)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeAdjusted, res.Notices[0].Kind)
}

func TestLoginSurvivesUserCartFetchFailure(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 10})
	f.store.getErr = errors.New("store down")
	ctx := context.Background()

	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "A", UnitPrice: 100, Qty: 2},
	}))

	res, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err, "login is never blocked by the remote store")
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 2, res.Lines[0].Qty)
}

func TestLoginConsumesGuestMirror(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 10})
	ctx := context.Background()

	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "A", UnitPrice: 100, Qty: 1},
	}))
	require.True(t, f.mirror.has(iddom.Guest().Key()))

	_, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, f.mirror.has(iddom.Guest().Key()), "merged guest cart must not resurface")
}

func TestLoginSchedulesRemoteWrite(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 10})
	ctx := context.Background()

	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "A", UnitPrice: 100, Qty: 2},
	}))

	_, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)
	f.settle()

	got := f.store.lines("user:u1")
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Qty)
}

func TestLoginSameUserIsNoop(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 10})
	ctx := context.Background()

	user, err := iddom.User("u1")
	require.NoError(t, err)
	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, user, []cartdom.Line{
		{ProductID: "A", UnitPrice: 100, Qty: 2},
	}))

	res, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Empty(t, res.Notices)
	assert.Equal(t, 0, f.oracle.callCount(), "no merge, no stock fan-out")
}

func TestLoginInvalidUserID(t *testing.T) {
	f := newEngineFixture(t, nil)
	_, err := f.engine.Login(context.Background(), "   ")
	require.ErrorIs(t, err, ErrCartInvalidArgument)
}

func TestLogoutReturnsToEmptyGuestCart(t *testing.T) {
	f := newEngineFixture(t, map[string]int{"A": 10})
	ctx := context.Background()

	require.NoError(t, f.engine.cache.SwitchIdentity(ctx, iddom.Guest(), []cartdom.Line{
		{ProductID: "A", UnitPrice: 100, Qty: 1},
	}))
	_, err := f.engine.Login(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Logout(ctx))
	assert.True(t, f.engine.Identity().IsGuest())
	assert.Empty(t, f.engine.Lines(), "guest cart was consumed at login")
}
