// internal/domain/cart/entity_test.go
package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLine(t *testing.T) {
	l, err := NewLine("  p1  ", "  Mug  ", 1200, " img/mug.png ")
	require.NoError(t, err)
	assert.Equal(t, "p1", l.ProductID)
	assert.Equal(t, "Mug", l.DisplayName)
	assert.Equal(t, 1200, l.UnitPrice)
	assert.Equal(t, 1, l.Qty)
	assert.Equal(t, "img/mug.png", l.ImageRef)
}

func TestNewLineValidation(t *testing.T) {
	_, err := NewLine("   ", "Mug", 100, "")
	assert.ErrorIs(t, err, ErrInvalidProductID)

	_, err = NewLine("p1", "Mug", -1, "")
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestValidateRejectsNegativeKnownStock(t *testing.T) {
	ks := -1
	l := Line{ProductID: "p1", UnitPrice: 100, Qty: 1, KnownStock: &ks}
	assert.ErrorIs(t, l.Validate(), ErrInvalidQuantity)
}

func TestNormalizeMergesDuplicatesAndSorts(t *testing.T) {
	got := Normalize([]Line{
		{ProductID: "b", DisplayName: "B", UnitPrice: 200, Qty: 1},
		{ProductID: "a", UnitPrice: 100, Qty: 2},
		{ProductID: "b", DisplayName: "ignored", UnitPrice: 200, Qty: 3},
		{ProductID: "a", DisplayName: "A", UnitPrice: 100, Qty: 1},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProductID)
	assert.Equal(t, 3, got[0].Qty)
	assert.Equal(t, "A", got[0].DisplayName, "first non-empty metadata wins")
	assert.Equal(t, "b", got[1].ProductID)
	assert.Equal(t, 4, got[1].Qty)
	assert.Equal(t, "B", got[1].DisplayName)
}

func TestNormalizeDropsEmptyAndZeroLines(t *testing.T) {
	got := Normalize([]Line{
		{ProductID: "  ", UnitPrice: 100, Qty: 1},
		{ProductID: "a", UnitPrice: 100, Qty: 0},
		{ProductID: "b", UnitPrice: 100, Qty: -2},
		{ProductID: "c", UnitPrice: 100, Qty: 1},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ProductID)
}

func TestCloneIsDeep(t *testing.T) {
	ks := 4
	src := []Line{{ProductID: "a", UnitPrice: 100, Qty: 2, KnownStock: &ks}}
	dst := Clone(src)

	*dst[0].KnownStock = 99
	dst[0].Qty = 99

	assert.Equal(t, 4, *src[0].KnownStock)
	assert.Equal(t, 2, src[0].Qty)
}

func TestEqual(t *testing.T) {
	ks1, ks2 := 3, 3
	a := []Line{{ProductID: "a", DisplayName: "A", UnitPrice: 100, Qty: 2, KnownStock: &ks1}}
	b := []Line{{ProductID: "a", DisplayName: "A", UnitPrice: 100, Qty: 2, KnownStock: &ks2}}
	assert.True(t, Equal(a, b))

	b[0].Qty = 3
	assert.False(t, Equal(a, b))

	b[0].Qty = 2
	b[0].KnownStock = nil
	assert.False(t, Equal(a, b))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestFindAndRemove(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: 100, Qty: 1},
		{ProductID: "b", UnitPrice: 200, Qty: 1},
	}
	assert.Equal(t, 1, Find(lines, "b"))
	assert.Equal(t, -1, Find(lines, "z"))

	lines = Remove(lines, 0)
	require.Len(t, lines, 1)
	assert.Equal(t, "b", lines[0].ProductID)

	assert.Len(t, Remove(lines, 5), 1)
}

func TestTotalsAndCounts(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: 1200, Qty: 2},
		{ProductID: "b", UnitPrice: 500, Qty: 3},
	}
	assert.Equal(t, 2400, lines[0].Subtotal())
	assert.Equal(t, 3900, Total(lines))
	assert.Equal(t, 5, Count(lines))
}
