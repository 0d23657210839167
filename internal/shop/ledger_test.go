package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLedger_CreateDecrementsAndPrices(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)
	p2 := seedProduct(t, cat, "mug", 900, 3)

	order, err := ledger.Create(ctx, "cust1", []LineItem{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "cust1", order.CustomerID)
	assert.Equal(t, 2*250+900, order.TotalCents)
	assert.False(t, order.CreatedAt.IsZero())

	got, _ := cat.Get(ctx, p1.ID)
	assert.Equal(t, 3, got.Stock)
	got, _ = cat.Get(ctx, p2.ID)
	assert.Equal(t, 2, got.Stock)
}

func TestMemLedger_CreateRejectsStaleLineAtomically(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 2)
	p2 := seedProduct(t, cat, "mug", 900, 0)

	// p2 line went stale after a concurrent stock change; whole order rejected
	// naming p2, and p1 keeps its 2 units.
	_, err := ledger.Create(ctx, "cust1", []LineItem{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 1},
	})
	var is *InsufficientStockError
	require.ErrorAs(t, err, &is)
	assert.Equal(t, p2.ID, is.ProductID)

	got, _ := cat.Get(ctx, p1.ID)
	assert.Equal(t, 2, got.Stock)

	orders, err := ledger.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemLedger_CreateEmpty(t *testing.T) {
	ledger := NewMemLedger(NewMemCatalog())
	_, err := ledger.Create(context.Background(), "cust1", nil)
	var ec *EmptyCartError
	require.ErrorAs(t, err, &ec)
}

func TestMemLedger_SnapshotImmutable(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)

	items := []LineItem{{ProductID: p1.ID, Quantity: 2}}
	order, err := ledger.Create(ctx, "cust1", items)
	require.NoError(t, err)

	// mutating the caller's slice must not touch the stored order
	items[0].Quantity = 99
	got, err := ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)

	// nor may mutating a returned copy
	got.Items[0].Quantity = 77
	again, err := ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemLedger_OrderSurvivesProductDeletion(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)

	order, err := ledger.Create(ctx, "cust1", []LineItem{{ProductID: p1.ID, Quantity: 2}})
	require.NoError(t, err)
	require.NoError(t, cat.Delete(ctx, p1.ID))

	got, err := ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, p1.ID, got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestMemLedger_Listings(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 10)

	o1, err := ledger.Create(ctx, "alice", []LineItem{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)
	o2, err := ledger.Create(ctx, "bob", []LineItem{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)
	o3, err := ledger.Create(ctx, "alice", []LineItem{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)

	mine, err := ledger.ListByCustomer(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []string{o1.ID, o3.ID}, []string{mine[0].ID, mine[1].ID})

	theirs, err := ledger.ListByCustomer(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, o2.ID, theirs[0].ID)

	all, err := ledger.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	var nf *NotFoundError
	_, err = ledger.Get(ctx, "nope")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "order", nf.Kind)
}

func TestMemLedger_TransitionGate(t *testing.T) {
	ctx := context.Background()
	cat := NewMemCatalog()
	ledger := NewMemLedger(cat)
	p1 := seedProduct(t, cat, "tea", 250, 5)
	order, err := ledger.Create(ctx, "cust1", []LineItem{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)

	got, err := ledger.Transition(ctx, order.ID, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)

	_, err = ledger.Transition(ctx, order.ID, StatusCancelled)
	var it *InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, StatusDelivered, it.From)
}
