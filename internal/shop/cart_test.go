package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, cat *MemCatalog, name string, price, stock int) Product {
	t.Helper()
	p, err := cat.Create(context.Background(), ProductInput{Name: name, PriceCents: price, Stock: stock})
	require.NoError(t, err)
	return p
}

func TestCart_AddItemCapsAtStock(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()

	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 3))

	// cumulative 6 > stock 5: rejected, cart still holds 3
	err := cart.AddItem(ctx, cat, p1.ID, 3)
	var is *InsufficientStockError
	require.ErrorAs(t, err, &is)
	assert.Equal(t, p1.ID, is.ProductID)
	assert.Equal(t, 6, is.Requested)

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCart_AddItemUnknownProduct(t *testing.T) {
	ctx := context.Background()
	cart := NewCart()

	err := cart.AddItem(ctx, NewMemCatalog(), "ghost", 1)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, cart.Items())
}

func TestCart_SetQuantity(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 2))

	// over stock: rejected, prior quantity intact
	err := cart.SetQuantity(ctx, cat, p1.ID, 6)
	var is *InsufficientStockError
	require.ErrorAs(t, err, &is)
	assert.Equal(t, 2, cart.Items()[0].Quantity)

	require.NoError(t, cart.SetQuantity(ctx, cat, p1.ID, 5))
	assert.Equal(t, 5, cart.Items()[0].Quantity)

	// zero removes the line
	require.NoError(t, cart.SetQuantity(ctx, cat, p1.ID, 0))
	assert.Empty(t, cart.Items())
}

func TestCart_RemoveItemIdempotent(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 1))

	cart.RemoveItem(p1.ID)
	cart.RemoveItem(p1.ID) // absent: no-op
	assert.Empty(t, cart.Items())
}

func TestCart_TotalUsesLivePrices(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 2))

	total, err := cart.Total(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 500, total)

	// price changes while shopping show up immediately
	newPrice := 300
	_, err = cat.Update(ctx, p1.ID, ProductPatch{PriceCents: &newPrice})
	require.NoError(t, err)

	total, err = cart.Total(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 600, total)
}

func TestCart_ReconcileClampsAndDrops(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 5)
	p2 := seedProduct(t, cat, "mug", 900, 3)
	p3 := seedProduct(t, cat, "pot", 1500, 2)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 5))
	require.NoError(t, cart.AddItem(ctx, cat, p2.ID, 3))
	require.NoError(t, cart.AddItem(ctx, cat, p3.ID, 2))

	// p1 shrinks to 2 -> clamp; p2 sells out -> drop; p3 deleted -> drop
	zero, two := 0, 2
	_, err := cat.Update(ctx, p1.ID, ProductPatch{Stock: &two})
	require.NoError(t, err)
	_, err = cat.Update(ctx, p2.ID, ProductPatch{Stock: &zero})
	require.NoError(t, err)
	require.NoError(t, cat.Delete(ctx, p3.ID))

	require.NoError(t, cart.Reconcile(ctx, cat))
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, p1.ID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCart_CheckoutEmpty(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)

	_, err := NewCart().Checkout(ctx, cat, ledger, "cust1")
	var ec *EmptyCartError
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, "cust1", ec.CustomerID)
}

func TestCart_CheckoutBooksOrderAndClears(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 3))

	order, err := cart.Checkout(ctx, cat, ledger, "cust1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, 750, order.TotalCents)
	assert.Empty(t, cart.Items())

	got, err := cat.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestCart_CheckoutReconcilesFirst(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 5))

	// stock shrank after the add; checkout clamps instead of failing
	two := 2
	_, err := cat.Update(ctx, p1.ID, ProductPatch{Stock: &two})
	require.NoError(t, err)

	order, err := cart.Checkout(ctx, cat, ledger, "cust1")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	got, _ := cat.Get(ctx, p1.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestCart_CheckoutOnlyDeletedLeavesEmptyCartError(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)
	cart := NewCart()
	require.NoError(t, cart.AddItem(ctx, cat, p1.ID, 1))
	require.NoError(t, cat.Delete(ctx, p1.ID))

	_, err := cart.Checkout(ctx, cat, ledger, "cust1")
	var ec *EmptyCartError
	require.ErrorAs(t, err, &ec)
}

// Property from the cart contract: however the cart is mutated, no line ever
// exceeds live stock once the call returns.
func TestCart_NeverExceedsStock(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	p1 := seedProduct(t, cat, "tea", 250, 4)
	cart := NewCart()

	_ = cart.AddItem(ctx, cat, p1.ID, 3)
	_ = cart.AddItem(ctx, cat, p1.ID, 3)
	_ = cart.SetQuantity(ctx, cat, p1.ID, 9)
	_ = cart.AddItem(ctx, cat, p1.ID, 1)
	_ = cart.SetQuantity(ctx, cat, p1.ID, 2)
	_ = cart.AddItem(ctx, cat, p1.ID, 2)

	for _, it := range cart.Items() {
		p, err := cat.Get(ctx, it.ProductID)
		require.NoError(t, err)
		assert.LessOrEqual(t, it.Quantity, p.Stock)
	}
}
