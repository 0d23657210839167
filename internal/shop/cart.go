package shop

import (
	"context"
	"errors"
	"sync"
)

// Cart is one customer's working selection. It lives only inside the session
// that owns it and holds no price snapshot: totals are always computed against
// live catalog prices, so a price change while shopping shows up immediately.
type Cart struct {
	mu    sync.Mutex
	items []LineItem
}

func NewCart() *Cart { return &Cart{} }

func (c *Cart) find(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem increases the line for productID by qty (a new line if absent).
// The cumulative quantity is checked against live stock first; on shortfall
// the cart is left exactly as it was.
func (c *Cart) AddItem(ctx context.Context, cat Catalog, productID string, qty int) error {
	if qty <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := cat.Get(ctx, productID)
	if err != nil {
		return err
	}
	want := qty
	i := c.find(productID)
	if i >= 0 {
		want += c.items[i].Quantity
	}
	if want > p.Stock {
		return &InsufficientStockError{ProductID: productID, Requested: want, Available: p.Stock}
	}
	if i >= 0 {
		c.items[i].Quantity = want
	} else {
		c.items = append(c.items, LineItem{ProductID: productID, Quantity: want})
	}
	return nil
}

// SetQuantity replaces the line's quantity. Zero removes the line.
func (c *Cart) SetQuantity(ctx context.Context, cat Catalog, productID string, qty int) error {
	if qty == 0 {
		c.RemoveItem(productID)
		return nil
	}
	if qty < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := cat.Get(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.Stock {
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	i := c.find(productID)
	if i >= 0 {
		c.items[i].Quantity = qty
	} else {
		c.items = append(c.items, LineItem{ProductID: productID, Quantity: qty})
	}
	return nil
}

// RemoveItem is idempotent: removing an absent line is a no-op.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.find(productID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// Items returns a copy of the current lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Reconcile drops lines whose product is gone or out of stock and clamps
// oversubscribed lines down to live stock. Runs before Total and Checkout so
// neither can see an over-subscribed selection.
func (c *Cart) Reconcile(ctx context.Context, cat Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, it := range c.items {
		p, err := cat.Get(ctx, it.ProductID)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				continue // product deleted, drop the line
			}
			return err
		}
		if p.Stock == 0 {
			continue
		}
		if it.Quantity > p.Stock {
			it.Quantity = p.Stock
		}
		kept = append(kept, it)
	}
	c.items = kept
	return nil
}

// Total reads prices fresh from the catalog on every call.
func (c *Cart) Total(ctx context.Context, cat Catalog) (int, error) {
	if err := c.Reconcile(ctx, cat); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, it := range c.items {
		p, err := cat.Get(ctx, it.ProductID)
		if err != nil {
			return 0, err
		}
		total += p.PriceCents * it.Quantity
	}
	return total, nil
}

// Checkout reconciles, hands the remaining snapshot to the ledger and clears
// the cart. The ledger re-checks stock independently; if it rejects, the cart
// keeps its lines so the customer can adjust and retry.
func (c *Cart) Checkout(ctx context.Context, cat Catalog, ledger Ledger, customerID string) (Order, error) {
	if err := c.Reconcile(ctx, cat); err != nil {
		return Order{}, err
	}

	c.mu.Lock()
	if len(c.items) == 0 {
		c.mu.Unlock()
		return Order{}, &EmptyCartError{CustomerID: customerID}
	}
	snapshot := make([]LineItem, len(c.items))
	copy(snapshot, c.items)
	c.mu.Unlock()

	order, err := ledger.Create(ctx, customerID, snapshot)
	if err != nil {
		return Order{}, err
	}

	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	return order, nil
}
