package shop

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlbh/storefront/internal/postgres"
)

// Exercises the pg-backed stores against a real database. Run with
// POSTGRES_TEST_DSN pointing at a database that has migrations/schema.sql
// applied; skipped otherwise.
func pgStores(t *testing.T) (*PGCatalog, *PGLedger) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := postgres.Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return &PGCatalog{DB: db}, &PGLedger{DB: db}
}

func TestPG_OrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	cat, ledger := pgStores(t)

	p1, err := cat.Create(ctx, ProductInput{Name: "tea", PriceCents: 250, Stock: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Delete(context.Background(), p1.ID) })

	order, err := ledger.Create(ctx, "cust-pg", []LineItem{{ProductID: p1.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, 750, order.TotalCents)

	got, err := cat.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	coord := &Coordinator{Orders: ledger, Stock: cat}
	cancelled, err := coord.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	got, err = cat.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	var it *InvalidTransitionError
	_, err = coord.Cancel(ctx, order.ID)
	require.ErrorAs(t, err, &it)
}

func TestPG_ReserveStockAllOrNothing(t *testing.T) {
	ctx := context.Background()
	cat, _ := pgStores(t)

	p1, err := cat.Create(ctx, ProductInput{Name: "tea", PriceCents: 250, Stock: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Delete(context.Background(), p1.ID) })
	p2, err := cat.Create(ctx, ProductInput{Name: "mug", PriceCents: 900, Stock: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Delete(context.Background(), p2.ID) })

	err = cat.ReserveStock(ctx, []LineItem{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p2.ID, Quantity: 1},
	})
	var is *InsufficientStockError
	require.ErrorAs(t, err, &is)
	assert.Equal(t, p2.ID, is.ProductID)

	got, err := cat.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}
