package pos

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(name string, price float64, stock int) CatalogProduct {
	return CatalogProduct{ID: uuid.New(), Name: name, Price: price, Stock: stock}
}

func TestAddRejectsDuplicates(t *testing.T) {
	order := NewOrder()
	p := product("espresso", 3.50, 10)

	require.NoError(t, order.Add(p))
	err := order.Add(p)

	assert.ErrorIs(t, err, ErrAlreadyInOrder)
	assert.Len(t, order.Lines(), 1)
	assert.Equal(t, 1, order.Lines()[0].Quantity)
}

func TestAddRejectsOutOfStockProduct(t *testing.T) {
	order := NewOrder()
	err := order.Add(product("sold out", 9.99, 0))

	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.True(t, order.Empty())
}

func TestIncrementStopsAtStockCeiling(t *testing.T) {
	order := NewOrder()
	p := product("latte", 4.00, 2)
	require.NoError(t, order.Add(p))
	require.NoError(t, order.Increment(p.ID))

	err := order.Increment(p.ID)

	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.Equal(t, 2, order.Lines()[0].Quantity)
}

func TestDecrementStopsAtOne(t *testing.T) {
	order := NewOrder()
	p := product("latte", 4.00, 5)
	require.NoError(t, order.Add(p))

	err := order.Decrement(p.ID)

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, order.Lines()[0].Quantity)
}

func TestSetQuantityBounds(t *testing.T) {
	order := NewOrder()
	p := product("tea", 2.25, 4)
	require.NoError(t, order.Add(p))

	assert.ErrorIs(t, order.SetQuantity(p.ID, 0), ErrInvalidQuantity)
	assert.Equal(t, 1, order.Lines()[0].Quantity)

	assert.ErrorIs(t, order.SetQuantity(p.ID, 5), ErrStockExceeded)
	assert.Equal(t, 1, order.Lines()[0].Quantity)

	require.NoError(t, order.SetQuantity(p.ID, 4))
	assert.Equal(t, 4, order.Lines()[0].Quantity)
}

func TestSetQuantityUnknownLine(t *testing.T) {
	order := NewOrder()
	assert.ErrorIs(t, order.SetQuantity(uuid.New(), 2), ErrLineNotFound)
}

func TestRemoveIsUnconditional(t *testing.T) {
	order := NewOrder()
	p := product("muffin", 1.80, 3)
	require.NoError(t, order.Add(p))
	require.NoError(t, order.SetQuantity(p.ID, 3))

	order.Remove(p.ID)
	assert.True(t, order.Empty())

	// Removing an absent product is a no-op.
	order.Remove(p.ID)
	assert.True(t, order.Empty())
}

func TestTotal(t *testing.T) {
	order := NewOrder()
	a := product("a", 10.00, 5)
	b := product("b", 2.50, 5)
	require.NoError(t, order.Add(a))
	require.NoError(t, order.Add(b))
	require.NoError(t, order.SetQuantity(a.ID, 3))

	assert.InDelta(t, 3*10.00+2.50, order.Total(), 1e-9)
}

func TestHoldAndResumeRoundTrip(t *testing.T) {
	order := NewOrder()
	a := product("a", 5.00, 3)
	b := product("b", 7.00, 1)
	require.NoError(t, order.Add(a))
	require.NoError(t, order.Add(b))
	require.NoError(t, order.Increment(a.ID))

	// B is already at its ceiling of 1.
	assert.ErrorIs(t, order.Increment(b.ID), ErrStockExceeded)
	assert.InDelta(t, 2*5.00+7.00, order.Total(), 1e-9)

	snapshot := order.Snapshot()
	order.Clear()
	require.True(t, order.Empty())
	require.Len(t, snapshot.Lines, 2)

	order.Restore(snapshot)

	lines := order.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.InDelta(t, 2*5.00+7.00, order.Total(), 1e-9)
}

func TestRestoreReplacesExistingLines(t *testing.T) {
	order := NewOrder()
	held := NewOrder()

	a := product("kept", 1.00, 9)
	require.NoError(t, held.Add(a))
	snapshot := held.Snapshot()

	stray := product("stray", 99.00, 9)
	require.NoError(t, order.Add(stray))

	order.Restore(snapshot)

	lines := order.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, a.ID, lines[0].ProductID)
}

func TestSnapshotIsDetachedFromOrder(t *testing.T) {
	order := NewOrder()
	p := product("x", 1.00, 5)
	require.NoError(t, order.Add(p))

	snapshot := order.Snapshot()
	require.NoError(t, order.SetQuantity(p.ID, 5))

	assert.Equal(t, 1, snapshot.Lines[0].Quantity)
}
